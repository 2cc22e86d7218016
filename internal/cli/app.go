// Package cli wires the vault components together and drives them from an
// interactive terminal session.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/privault/privault/internal/common"
	"github.com/privault/privault/internal/config"
	"github.com/privault/privault/internal/contacts"
	"github.com/privault/privault/internal/intrusion"
	"github.com/privault/privault/internal/kvstore"
	"github.com/privault/privault/internal/logging"
	"github.com/privault/privault/internal/messaging"
	"github.com/privault/privault/internal/objects"
	"github.com/privault/privault/internal/relay"
	"github.com/privault/privault/internal/vault"

	_ "modernc.org/sqlite"
)

// App owns the wired component graph for one vault installation.
type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	store    kvstore.Store
	vault    *vault.Vault
	objects  *objects.Store
	contacts *contacts.Service
	messages *messaging.Service
	hook     *intrusion.Hook
	relay    relay.Relay
	deviceID string

	stopMessaging func()
	reader        *bufio.Reader
}

// NewApp opens the local database and wires every component. The relay is
// optional: with no RelayURL configured the vault runs fully local.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger, capturer intrusion.Capturer) (*App, error) {
	db, err := sql.Open("sqlite", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := kvstore.NewSQLiteStore(db)
	if err := store.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	deviceID, err := loadDeviceID(ctx, store)
	if err != nil {
		db.Close()
		return nil, err
	}

	var r relay.Relay
	if cfg.RelayURL != "" {
		nr, err := relay.NewNATSRelay(cfg.RelayURL, deviceID, cfg.RelayTimeout, logger)
		if err != nil {
			logger.Warn(ctx, "relay unavailable, running local-only", "error", err)
		} else {
			r = nr
		}
	}

	v := vault.New(store, vault.Config{
		MinPINLength:    cfg.MinPINLength,
		MaxAttempts:     cfg.MaxAttempts,
		LockoutDuration: cfg.LockoutDuration,
		IdleTimeout:     cfg.IdleTimeout,
	}, logger)

	hook := intrusion.NewHook(store, capturer, cfg.DeviceInfo, cfg.IntrusionRetention, logger)
	v.Subscribe(hook)

	cs := contacts.NewService(store, v, r, deviceID, logger)
	ms := messaging.NewService(store, v, cs, r, deviceID, logger)

	return &App{
		config:   cfg,
		logger:   logger,
		db:       db,
		store:    store,
		vault:    v,
		objects:  objects.NewStore(store, v, logger),
		contacts: cs,
		messages: ms,
		hook:     hook,
		relay:    r,
		deviceID: deviceID,
		reader:   bufio.NewReader(os.Stdin),
	}, nil
}

// loadDeviceID returns the persisted device id, minting one on first run.
// The id identifies this installation to the relay; it is not a secret.
func loadDeviceID(ctx context.Context, store kvstore.Store) (string, error) {
	raw, err := store.Get(ctx, kvstore.KeyDeviceID)
	if err == nil {
		return string(raw), nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return "", err
	}

	id := uuid.NewString()
	if err := store.Set(ctx, kvstore.KeyDeviceID, []byte(id)); err != nil {
		return "", err
	}
	return id, nil
}

// Run starts the idle watchdog and the REPL, blocking until the user exits.
func (a *App) Run(ctx context.Context) {
	a.vault.StartAutoLock(ctx)
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
	a.Close()
}

// startMessaging subscribes to incoming pushes after an unlock.
func (a *App) startMessaging(ctx context.Context) {
	if a.stopMessaging != nil {
		return
	}
	stop, err := a.messages.Start(ctx)
	if err != nil {
		a.logger.Warn(ctx, "failed to start message delivery", "error", err)
		return
	}
	a.stopMessaging = stop
}

func (a *App) stopMessagingNow() {
	if a.stopMessaging != nil {
		a.stopMessaging()
		a.stopMessaging = nil
	}
}

func (a *App) status() string {
	state, err := a.vault.Status(context.Background())
	if err != nil {
		return "error"
	}
	return state.String()
}

func (a *App) isUnlocked() bool {
	_, err := a.vault.Session()
	return err == nil
}

// EraseAll wipes every vault record: identity, objects with their blobs,
// contacts, messages and intrusion logs with their images.
func (a *App) EraseAll(ctx context.Context) error {
	objs, err := a.objects.List(ctx, "")
	if err == nil {
		for _, o := range objs {
			_ = a.store.Delete(ctx, kvstore.FileBlobPrefix+o.Id)
			_ = a.store.Delete(ctx, kvstore.FileThumbPrefix+o.Id)
		}
	}
	a.hook.Wait()
	if entries, err := a.hook.Entries(ctx); err == nil {
		for _, e := range entries {
			if e.CapturedImageRef != "" {
				_ = a.store.Delete(ctx, e.CapturedImageRef)
			}
		}
	}

	for _, key := range []string{
		kvstore.KeyFiles,
		kvstore.KeyContacts,
		kvstore.KeyInvites,
		kvstore.KeyMessages,
		kvstore.KeyIntrusionLogs,
	} {
		if err := a.store.Delete(ctx, key); err != nil {
			return err
		}
	}

	a.stopMessagingNow()
	return a.vault.Erase(ctx)
}

// Close releases the relay connection and the database.
func (a *App) Close() {
	a.stopMessagingNow()
	a.vault.Lock()
	a.hook.Wait()
	if a.relay != nil {
		a.relay.Close()
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn(context.Background(), "failed to close database", "error", err)
	}
}
