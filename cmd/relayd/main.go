package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/privault/privault/internal/common"
	"github.com/privault/privault/internal/config"
	"github.com/privault/privault/internal/logging"
	"github.com/privault/privault/internal/relayserver"
)

func main() {

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.LoadRelaydConfig()
	logger := logging.NewJSONLogger()

	secret := []byte(cfg.TokenSecret)
	if len(secret) == 0 {
		// an ephemeral secret invalidates tokens on restart, which is fine
		// for development setups
		secret = common.GenerateRandByteArray(32)
		logger.Warn(ctx, "no token secret configured, using an ephemeral one")
	}

	var store relayserver.Store
	if cfg.DatabaseDSN != "" {
		db, err := sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := relayserver.RunMigrations(ctx, db); err != nil {
			log.Fatalf("migrations error: %v", err)
		}
		store = relayserver.NewPostgresStore(db)
	} else {
		logger.Warn(ctx, "no database configured, using the in-memory store")
		store = relayserver.NewMemoryStore()
	}

	nc, err := nats.Connect(cfg.NatsURL, nats.Name("privault-relayd"))
	if err != nil {
		log.Fatalf("nats connect error: %v", err)
	}
	defer nc.Close()

	srv := relayserver.New(store, secret, logger)
	stop, err := srv.Serve(nc)
	if err != nil {
		log.Fatalf("serve error: %v", err)
	}
	defer stop()

	logger.Info(ctx, "relay daemon started", "nats_url", cfg.NatsURL)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-sigs

	logger.Info(ctx, "shutting down")
}
