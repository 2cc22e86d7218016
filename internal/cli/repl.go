package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isUnlocked() bool
	Setup(ctx context.Context) error
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	AddFile(ctx context.Context, args []string) error
	ListFiles(ctx context.Context, args []string) error
	ViewFile(ctx context.Context, args []string) error
	DeleteFile(ctx context.Context, args []string) error
	Invite(ctx context.Context) error
	Redeem(ctx context.Context) error
	Contacts(ctx context.Context) error
	Block(ctx context.Context, args []string) error
	Send(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error
	Intrusions(ctx context.Context) error
	Erase(ctx context.Context) error
}

// runREPL starts a read–eval–print loop for the vault CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// The prompt shows the vault state (from statusFn) and accepts commands:
//
//	Locked:
//	  - help           — show available commands
//	  - setup          — initialize the vault with a new PIN
//	  - unlock         — unlock with the PIN
//	  - exit | quit    — leave the program
//
//	Unlocked:
//	  - help           — show available commands
//	  - addfile        — store a file encrypted
//	  - files          — list stored files (optionally by category)
//	  - view           — decrypt one file to disk
//	  - rmfile         — delete a stored file
//	  - invite         — create a contact invite
//	  - redeem         — redeem an invite code or payload
//	  - contacts       — list contacts
//	  - block          — block a contact
//	  - send           — send a secure message
//	  - history        — show a conversation
//	  - intrusions     — show the intrusion log
//	  - erase          — wipe the entire vault
//	  - lock           — lock the vault
//	  - exit | quit    — leave the program
//
// Any errors returned by command handlers are ignored here; handlers report
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("privault [%s] > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isUnlocked() {
				printlnFn("Available commands: addfile, files, view, rmfile, invite, redeem, contacts, block, send, history, intrusions, erase, lock, exit")
			} else {
				printlnFn("Available commands: setup, unlock, intrusions, exit")
			}

		case "setup":
			_ = a.Setup(ctx)

		case "unlock":
			_ = a.Unlock(ctx)

		case "lock":
			_ = a.Lock(ctx)

		case "addfile":
			_ = a.AddFile(ctx, args)

		case "files":
			_ = a.ListFiles(ctx, args)

		case "view":
			_ = a.ViewFile(ctx, args)

		case "rmfile":
			_ = a.DeleteFile(ctx, args)

		case "invite":
			_ = a.Invite(ctx)

		case "redeem":
			_ = a.Redeem(ctx)

		case "contacts":
			_ = a.Contacts(ctx)

		case "block":
			_ = a.Block(ctx, args)

		case "send":
			_ = a.Send(ctx, args)

		case "history":
			_ = a.History(ctx, args)

		case "intrusions":
			_ = a.Intrusions(ctx)

		case "erase":
			_ = a.Erase(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
