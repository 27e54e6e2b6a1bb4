package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/customeros/mailsync/config"
	"github.com/customeros/mailsync/internal/database"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/repository"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/internal/utils"
	"github.com/customeros/mailsync/server"
	"github.com/customeros/mailsync/services"
)

const appSource = "mailsync-cli"

func main() {
	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Config initialization failed: %v", err)
	}
	if cfg == nil {
		log.Fatalf("config is empty")
	}

	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()
	defer appLogger.Sync()

	app := &cli.App{
		Name:  "mailsync",
		Usage: "mailbox synchronization and diagnostics",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(c *cli.Context) error {
					db, err := database.InitDatabase(cfg.DatabaseConfig)
					if err != nil {
						return err
					}
					if err := repository.Migrate(db); err != nil {
						return fmt.Errorf("database migration failed: %w", err)
					}
					appLogger.Info("Database migration completed successfully")
					return nil
				},
			},
			{
				Name:  "server",
				Usage: "Start the application server",
				Action: func(c *cli.Context) error {
					db, err := database.InitDatabase(cfg.DatabaseConfig)
					if err != nil {
						return err
					}

					appLogger.Info("Mailsync starting up...")
					srv, err := server.NewServer(cfg, appLogger, db)
					if err != nil {
						return fmt.Errorf("server setup failed: %w", err)
					}
					if err := srv.Run(); err != nil {
						return err
					}
					appLogger.Info("Shutdown complete")
					return nil
				},
			},
			{
				Name:  "credentials",
				Usage: "Store the IMAP credentials of a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "user id", Required: true},
					&cli.StringFlag{Name: "email", Usage: "account email address", Required: true},
					&cli.StringFlag{Name: "imap-host", Required: true},
					&cli.IntFlag{Name: "imap-port", Value: 993},
					&cli.StringFlag{Name: "imap-username", Usage: "defaults to the email address"},
					&cli.StringFlag{Name: "imap-password", EnvVars: []string{"IMAP_PASSWORD"}, Required: true},
					&cli.BoolFlag{Name: "imap-tls", Value: true},
					&cli.StringFlag{Name: "smtp-host"},
					&cli.IntFlag{Name: "smtp-port", Value: 587},
				},
				Action: func(c *cli.Context) error {
					db, err := database.InitDatabase(cfg.DatabaseConfig)
					if err != nil {
						return err
					}

					username := c.String("imap-username")
					if username == "" {
						username = c.String("email")
					}
					credentials := &models.EmailCredentials{
						UserID:       c.String("user"),
						EmailAddress: c.String("email"),
						ImapServer:   c.String("imap-host"),
						ImapPort:     c.Int("imap-port"),
						ImapUsername: username,
						ImapPassword: c.String("imap-password"),
						ImapTLS:      c.Bool("imap-tls"),
						SmtpServer:   c.String("smtp-host"),
						SmtpPort:     c.Int("smtp-port"),
					}

					repos := repository.InitRepositories(db)
					if err := repos.EmailCredentialsRepository.Save(c.Context, credentials); err != nil {
						return fmt.Errorf("could not save credentials: %w", err)
					}
					appLogger.Infof("Stored credentials %s for user %s", credentials.ID, credentials.UserID)
					return nil
				},
			},
			{
				Name:  "sync",
				Usage: "Sync one folder of a user and print the result",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "user id", Required: true},
					&cli.StringFlag{Name: "folder", Usage: "canonical folder name", Value: "INBOX"},
				},
				Action: func(c *cli.Context) error {
					return withServices(cfg, appLogger, func(ctx context.Context, svcs *services.Services) error {
						result, err := svcs.SyncService.SyncFolder(ctx, c.String("user"), c.String("folder"))
						if err != nil {
							return err
						}
						return printJSON(result)
					})
				},
			},
			{
				Name:  "diagnose",
				Usage: "Sync the default folders of a user and print the diagnostic report",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "user id", Required: true},
					&cli.StringSliceFlag{Name: "folder", Usage: "folders to sync, defaults to INBOX, Sent, Drafts and Trash"},
				},
				Action: func(c *cli.Context) error {
					return withServices(cfg, appLogger, func(ctx context.Context, svcs *services.Services) error {
						report, err := svcs.SyncService.SyncAccount(ctx, c.String("user"), c.StringSlice("folder"))
						if err != nil {
							return err
						}
						return printJSON(report)
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}

// withServices runs fn with initialized services, cancelling on SIGINT or SIGTERM.
func withServices(cfg *config.Config, appLogger logger.Logger, fn func(ctx context.Context, svcs *services.Services) error) error {
	db, err := database.InitDatabase(cfg.DatabaseConfig)
	if err != nil {
		return err
	}

	closer, err := tracing.InitGlobalTracer(cfg.Tracing, appLogger)
	if err != nil {
		return err
	}
	defer closer.Close()

	// one-off commands do not consume broker events
	cfg.AppConfig.RabbitMQURL = ""
	svcs, err := services.InitServices(cfg, appLogger, repository.InitRepositories(db))
	if err != nil {
		return err
	}
	defer svcs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(utils.WithCustomContext(ctx, &utils.CustomContext{AppSource: appSource}), svcs)
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
