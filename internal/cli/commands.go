package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/privault/privault/internal/common"
	"github.com/privault/privault/internal/messaging"
	"github.com/privault/privault/internal/objects"
	"github.com/privault/privault/internal/vault"
)

// Setup initializes the vault with a new PIN.
func (a *App) Setup(ctx context.Context) error {
	pin, err := GetPIN("Choose a PIN", os.Stdout)
	if err != nil {
		return err
	}
	confirm, err := GetPIN("Confirm PIN", os.Stdout)
	if err != nil {
		return err
	}

	if _, err := a.vault.Setup(ctx, pin, confirm); err != nil {
		switch {
		case errors.Is(err, common.ErrPINTooShort):
			printlnFn(fmt.Sprintf("PIN must be at least %d characters", a.config.MinPINLength))
		case errors.Is(err, common.ErrPINMismatch):
			printlnFn("PINs do not match")
		case errors.Is(err, common.ErrAlreadyInitialized):
			printlnFn("Vault is already set up; use unlock")
		default:
			printlnFn("Setup failed:", err)
		}
		return err
	}

	printlnFn("Vault created and unlocked")
	a.startMessaging(ctx)
	return nil
}

// Unlock prompts for the PIN and unlocks the vault.
func (a *App) Unlock(ctx context.Context) error {
	pin, err := GetPIN("PIN", os.Stdout)
	if err != nil {
		return err
	}

	if _, err := a.vault.Unlock(ctx, pin); err != nil {
		var badPIN *vault.BadPINError
		var lockedOut *vault.LockedOutError
		switch {
		case errors.As(err, &badPIN):
			printlnFn(fmt.Sprintf("Wrong PIN, %d attempts remaining", badPIN.AttemptsRemaining))
		case errors.As(err, &lockedOut):
			printlnFn(fmt.Sprintf("Too many failed attempts, try again in %s", lockedOut.Remaining(time.Now()).Round(time.Second)))
		case errors.Is(err, common.ErrNotInitialized):
			printlnFn("Vault is not set up yet; use setup")
		default:
			printlnFn("Unlock failed:", err)
		}
		return err
	}

	printlnFn("Vault unlocked")
	a.startMessaging(ctx)
	return nil
}

// Lock locks the vault immediately.
func (a *App) Lock(_ context.Context) error {
	a.stopMessagingNow()
	a.vault.Lock()
	printlnFn("Vault locked")
	return nil
}

// AddFile encrypts and stores a file from disk.
func (a *App) AddFile(ctx context.Context, args []string) error {
	a.vault.Touch()

	path, err := argOrPrompt(a, args, "File path")
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		printlnFn("Cannot read file:", err)
		return err
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	obj, err := a.objects.Add(ctx, filepath.Base(path), mimeType, data)
	if err != nil {
		reportVaultErr(err, "Add failed")
		return err
	}

	printlnFn(fmt.Sprintf("Stored %s as %s (%s)", obj.FileName, obj.Id, obj.MimeCategory))
	return nil
}

// ListFiles lists stored objects, optionally by category.
func (a *App) ListFiles(ctx context.Context, args []string) error {
	a.vault.Touch()

	var category objects.Category
	if len(args) > 0 {
		category = objects.Category(args[0])
	}

	objs, err := a.objects.List(ctx, category)
	if err != nil {
		reportVaultErr(err, "List failed")
		return err
	}
	if len(objs) == 0 {
		printlnFn("No files stored")
		return nil
	}
	for _, o := range objs {
		thumb := ""
		if o.HasThumbnail {
			thumb = " [thumbnail]"
		}
		printlnFn(fmt.Sprintf("%s  %-10s %8d bytes  %s%s", o.Id, o.MimeCategory, o.SizeBytes, o.FileName, thumb))
	}
	return nil
}

// ViewFile decrypts one object back to a file on disk.
func (a *App) ViewFile(ctx context.Context, args []string) error {
	a.vault.Touch()

	id, err := argOrPrompt(a, args, "File id")
	if err != nil {
		return err
	}

	obj, err := a.objects.Get(ctx, id)
	if err != nil {
		reportVaultErr(err, "View failed")
		return err
	}
	data, err := a.objects.View(ctx, id)
	if err != nil {
		reportVaultErr(err, "View failed")
		return err
	}

	if err := os.WriteFile(obj.FileName, data, 0o600); err != nil {
		printlnFn("Cannot write file:", err)
		return err
	}
	printlnFn("Decrypted to", obj.FileName)
	return nil
}

// DeleteFile removes a stored object.
func (a *App) DeleteFile(ctx context.Context, args []string) error {
	a.vault.Touch()

	id, err := argOrPrompt(a, args, "File id")
	if err != nil {
		return err
	}
	if err := a.objects.Delete(ctx, id); err != nil {
		reportVaultErr(err, "Delete failed")
		return err
	}
	printlnFn("Deleted", id)
	return nil
}

// Invite creates a contact invite and prints the transfer payload.
func (a *App) Invite(ctx context.Context) error {
	a.vault.Touch()

	label, err := GetSimpleText(a.reader, "Contact name", os.Stdout)
	if err != nil {
		return err
	}

	inv, err := a.contacts.CreateInvite(ctx, label)
	if err != nil {
		reportVaultErr(err, "Invite failed")
		return err
	}

	printlnFn("Invite code:", inv.Code)
	printlnFn("Transfer payload (share over a trusted channel):")
	printlnFn(" ", inv.TransferPayload())
	if inv.Registered {
		printlnFn("The code alone works for redemption via the relay")
	} else {
		printlnFn("No relay: the counterpart needs the full payload")
	}
	printlnFn("Expires:", inv.ExpiresAt.Format("2006-01-02 15:04"))
	return nil
}

// Redeem turns a received invite into a contact.
func (a *App) Redeem(ctx context.Context) error {
	a.vault.Touch()

	payload, err := GetSimpleText(a.reader, "Invite code or payload", os.Stdout)
	if err != nil {
		return err
	}
	label, err := GetSimpleText(a.reader, "Contact name", os.Stdout)
	if err != nil {
		return err
	}

	conn, err := a.contacts.RedeemInvite(ctx, payload, label)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInviteExpired):
			printlnFn("This invite has expired")
		case errors.Is(err, common.ErrInviteNotFound):
			printlnFn("Unknown invite code")
		case errors.Is(err, common.ErrTimeout):
			printlnFn("Relay did not respond; ask for the full payload instead")
		default:
			reportVaultErr(err, "Redeem failed")
		}
		return err
	}

	printlnFn("Contact added:", conn.DisplayName, "("+conn.Id+")")
	return nil
}

// Contacts lists connections.
func (a *App) Contacts(ctx context.Context) error {
	a.vault.Touch()

	conns, err := a.contacts.List(ctx)
	if err != nil {
		reportVaultErr(err, "List failed")
		return err
	}
	if len(conns) == 0 {
		printlnFn("No contacts")
		return nil
	}
	for _, c := range conns {
		printlnFn(fmt.Sprintf("%s  %-8s  %s", c.Id, c.Status, c.DisplayName))
	}
	return nil
}

// Block blocks a contact.
func (a *App) Block(ctx context.Context, args []string) error {
	a.vault.Touch()

	id, err := argOrPrompt(a, args, "Contact id")
	if err != nil {
		return err
	}
	if err := a.contacts.Block(ctx, id); err != nil {
		reportVaultErr(err, "Block failed")
		return err
	}
	printlnFn("Blocked", id)
	return nil
}

// Send sends a secure message to a contact.
func (a *App) Send(ctx context.Context, args []string) error {
	a.vault.Touch()

	id, err := argOrPrompt(a, args, "Contact id")
	if err != nil {
		return err
	}
	text, err := GetMultiline(a.reader, "Message", os.Stdout)
	if err != nil {
		return err
	}

	msg, err := a.messages.Send(ctx, id, []byte(text))
	if err != nil {
		reportVaultErr(err, "Send failed")
		return err
	}
	if msg.Delivered {
		printlnFn("Delivered")
	} else {
		printlnFn("Stored; relay unreachable, not yet delivered")
	}
	return nil
}

// History prints a conversation oldest first.
func (a *App) History(ctx context.Context, args []string) error {
	a.vault.Touch()

	id, err := argOrPrompt(a, args, "Contact id")
	if err != nil {
		return err
	}

	items, err := a.messages.History(ctx, id)
	if err != nil {
		reportVaultErr(err, "History failed")
		return err
	}
	if len(items) == 0 {
		printlnFn("No messages")
		return nil
	}
	for _, item := range items {
		arrow := "<-"
		if item.Message.Direction == messaging.DirectionOutgoing {
			arrow = "->"
		}
		printlnFn(fmt.Sprintf("%s %s %s", item.Message.SentAt.Format("2006-01-02 15:04"), arrow, item.Text))
	}
	return nil
}

// Intrusions prints the intrusion log. Works while locked.
func (a *App) Intrusions(ctx context.Context) error {
	entries, err := a.hook.Entries(ctx)
	if err != nil {
		printlnFn("Failed to read intrusion log:", err)
		return err
	}
	if len(entries) == 0 {
		printlnFn("No recorded intrusion attempts")
		return nil
	}
	for _, e := range entries {
		captured := "no capture"
		if e.CapturedImageRef != "" {
			captured = "image captured"
		}
		printlnFn(fmt.Sprintf("%s  attempt %s  %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.AttemptFingerprint, captured))
	}
	return nil
}

// Erase wipes the whole vault after an explicit confirmation.
func (a *App) Erase(ctx context.Context) error {
	confirm, err := GetSimpleText(a.reader, "Type 'erase' to wipe everything", os.Stdout)
	if err != nil {
		return err
	}
	if confirm != "erase" {
		printlnFn("Aborted")
		return nil
	}

	if err := a.EraseAll(ctx); err != nil {
		printlnFn("Erase failed:", err)
		return err
	}
	printlnFn("Vault erased")
	return nil
}

func argOrPrompt(a *App, args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return GetSimpleText(a.reader, prompt, os.Stdout)
}

func reportVaultErr(err error, prefix string) {
	if errors.Is(err, common.ErrVaultLocked) {
		printlnFn("Vault is locked; unlock first")
		return
	}
	if errors.Is(err, common.ErrorNotFound) {
		printlnFn("Not found")
		return
	}
	printlnFn(prefix+":", err)
}
