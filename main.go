package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"splitledger/cmd"
	"splitledger/database"

	log "github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			if err := handleMigrationCommand(); err != nil {
				log.Fatal("Migration error: ", err)
			}
			return
		case "import":
			if err := handleImportCommand(); err != nil {
				log.Fatal("Import error: ", err)
			}
			return
		case "serve":
		default:
			log.Fatalf("unknown command: %s (usage: splitledger [serve|migrate|import])", os.Args[1])
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error: ", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: splitledger migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

func handleImportCommand() error {
	if len(os.Args) < 4 {
		return fmt.Errorf("usage: splitledger import <email> <export.json>")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return cmd.ImportFile(ctx, os.Args[2], os.Args[3])
}
