package relayserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/privault/privault/internal/common"
	"github.com/privault/privault/internal/dbx"
	"github.com/privault/privault/internal/relay"
	"github.com/privault/privault/internal/relayserver/migrations"
)

// PostgresStore is the production Store backed by PostgreSQL via pgx.
type PostgresStore struct {
	db dbx.DBTX
}

// NewPostgresStore binds a store to the given DBTX.
func NewPostgresStore(db dbx.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// gooseUpContext is a seam for testing RunMigrations.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func (s *PostgresStore) SaveDevice(ctx context.Context, deviceID string) error {
	query :=
		`INSERT INTO devices (device_id)
		 VALUES ($1)
		 ON CONFLICT (device_id) DO NOTHING
		 `

	if _, err := s.db.ExecContext(ctx, query, deviceID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveInvite(ctx context.Context, inv *relay.InviteRecord) error {
	query :=
		`INSERT INTO invites (code, shared_key_ref, connection_id, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (code) DO UPDATE
		 SET shared_key_ref = EXCLUDED.shared_key_ref,
		     connection_id = EXCLUDED.connection_id,
		     expires_at = EXCLUDED.expires_at
		 `

	if _, err := s.db.ExecContext(ctx, query,
		inv.Code, inv.SharedKeyRef, inv.ConnectionID, inv.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetInvite(ctx context.Context, code string) (*relay.InviteRecord, error) {
	query :=
		`SELECT code, shared_key_ref, connection_id, expires_at FROM invites
		 WHERE code = $1
		 `

	inv := &relay.InviteRecord{}
	err := s.db.QueryRowContext(ctx, query, code).Scan(
		&inv.Code, &inv.SharedKeyRef, &inv.ConnectionID, &inv.ExpiresAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return inv, nil
}

func (s *PostgresStore) SaveMessage(ctx context.Context, msg *relay.Message) error {
	query :=
		`INSERT INTO messages (id, connection_id, sender_id, cipher_content, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 `

	if _, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.ConnectionID, msg.SenderID, msg.CipherContent, msg.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
