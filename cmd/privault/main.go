package main

import (
	"context"
	"log"

	"github.com/privault/privault/internal/cli"
	"github.com/privault/privault/internal/config"
	"github.com/privault/privault/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger()

	app, err := cli.NewApp(ctx, cfg, logger, nil)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
