package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lending/cmd"
	"lending/database"

	log "github.com/sirupsen/logrus"
)

const usage = `usage: lending [command]

commands:
  (none)                         run the service (daily yield worker, import consumer)
  migrate up|down [steps]|status manage the schema
  import <file.csv|file.xlsx> [sheet]
  daily-yield [YYYY-MM-DD]       pay one day of yield, today by default
  rebuild-snapshots <account-id>
  reconcile <account-id>`

func main() {
	cmd.ConfigureLogging(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := dispatch(ctx, os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}
}

func dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		if err := cmd.Run(ctx); err != nil {
			return fmt.Errorf("application error: %w", err)
		}
		return nil
	}

	switch args[0] {
	case "migrate":
		if err := handleMigrationCommand(args[1:]); err != nil {
			return fmt.Errorf("migration error: %w", err)
		}
		return nil
	case "import":
		if len(args) < 2 {
			return fmt.Errorf("usage: lending import <file.csv|file.xlsx> [sheet]")
		}
		sheet := ""
		if len(args) > 2 {
			sheet = args[2]
		}
		return cmd.RunImport(ctx, os.Stdout, args[1], sheet)
	case "daily-yield":
		date := ""
		if len(args) > 1 {
			date = args[1]
		}
		return cmd.RunDailyYield(ctx, os.Stdout, date)
	case "rebuild-snapshots":
		if len(args) < 2 {
			return fmt.Errorf("usage: lending rebuild-snapshots <account-id>")
		}
		return cmd.RunRebuildSnapshots(ctx, os.Stdout, args[1])
	case "reconcile":
		if len(args) < 2 {
			return fmt.Errorf("usage: lending reconcile <account-id>")
		}
		return cmd.RunReconcile(ctx, os.Stdout, args[1])
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func handleMigrationCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: lending migrate [up|down|status] [args...]")
	}

	switch args[0] {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(args) > 1 {
			steps = args[1]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}
