// Command watchctl is the Seatwatch operations CLI.
//
// Usage:
//
//	watchctl migrate
//	watchctl pass
//	watchctl watches list --user u-123 --status PENDING
//	watchctl watches decline --user u-123 --id 6f1c...
//	watchctl stations --q busan
//	watchctl notifications dispatch
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/seatwatch/internal/config"
	"github.com/albapepper/seatwatch/internal/db"
	"github.com/albapepper/seatwatch/internal/monitor"
	"github.com/albapepper/seatwatch/internal/notifications"
	"github.com/albapepper/seatwatch/internal/provider/railapi"
	"github.com/albapepper/seatwatch/internal/station"
	"github.com/albapepper/seatwatch/internal/watch"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:          "watchctl",
		Short:        "Seatwatch operations CLI",
		SilenceUsage: true,
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(passCmd())
	root.AddCommand(watchesCmd())
	root.AddCommand(stationsCmd())
	root.AddCommand(notificationsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// migrate / pass
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				fmt.Fprintln(cmd.OutOrStdout(), db.Schema())
				return nil
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
				return err
			}
			logger.Info("Schema applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the schema instead of applying it")
	return cmd
}

func passCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pass",
		Short: "Run one availability pass over every pending watch",
		Long:  "Run one availability pass now. Fails fast if the API scheduler or another pass holds the pass lock.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				stations, err := station.Load(cfg.StationsFile)
				if err != nil {
					return err
				}
				store := watch.NewPostgresStore(pool.Pool)
				client := railapi.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey,
					cfg.ProviderRequestsPerMinute, cfg.ProviderTimeout, logger)
				dispatcher := notifications.NewDispatcher(notifications.NewPgOutbox(pool.Pool), logger)
				lifecycle := monitor.NewLifecycle(store, dispatcher, stations, cfg.Location(), logger)
				runner := monitor.NewRunner(store, monitor.NewProbe(client, cfg.ProviderTimeout, logger), lifecycle, logger)

				start := time.Now()
				res, err := monitor.NewLockedRunner(runner, pool.NewAdvisoryLock(db.PassLockKey)).RunPass(ctx)
				if err != nil {
					return err
				}
				logger.Info("Pass finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", res.Summary())
				return printJSON(cmd, res)
			})
		},
	}
}

// --------------------------------------------------------------------------
// watches
// --------------------------------------------------------------------------

func watchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watches",
		Short: "Inspect and manage a user's watches",
	}
	cmd.AddCommand(watchesListCmd())
	cmd.AddCommand(watchesDeclineCmd())
	return cmd
}

func watchesListCmd() *cobra.Command {
	var (
		userID   string
		statuses []string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's watches",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			filter, err := parseStatuses(statuses)
			if err != nil {
				return err
			}
			return withService(func(ctx context.Context, svc *watch.Service) error {
				views, err := svc.ListActive(ctx, userID, filter...)
				if err != nil {
					return err
				}
				return printJSON(cmd, views)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Statuses to include (PENDING, COMPLETED, FAILED)")
	return cmd
}

func watchesDeclineCmd() *cobra.Command {
	var userID, id string
	cmd := &cobra.Command{
		Use:   "decline",
		Short: "Decline a pending watch on a user's behalf",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" || id == "" {
				return fmt.Errorf("--user and --id are required")
			}
			return withService(func(ctx context.Context, svc *watch.Service) error {
				req, err := svc.Decline(ctx, userID, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, svc.View(req))
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Owning user ID")
	cmd.Flags().StringVar(&id, "id", "", "Watch ID")
	return cmd
}

// --------------------------------------------------------------------------
// stations / notifications
// --------------------------------------------------------------------------

func stationsCmd() *cobra.Command {
	var file, q string
	cmd := &cobra.Command{
		Use:   "stations",
		Short: "Search the station directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := station.Load(file)
			if err != nil {
				return err
			}
			for _, s := range dir.Search(q) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.ID, s.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", os.Getenv("STATIONS_FILE"), "Station YAML file (default: built-in list)")
	cmd.Flags().StringVar(&q, "q", "", "Name or ID fragment")
	return cmd
}

func notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Notification outbox operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "dispatch",
		Short: "Deliver one batch of due notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				transport, closeTransport := notifications.NewTransport(notifications.TransportConfig{
					Kind:               cfg.NotifyTransport,
					FCMCredentialsFile: cfg.FCMCredentialsFile,
					AMQPURL:            cfg.AMQPURL,
					AMQPQueue:          cfg.AMQPQueue,
				}, logger)
				defer closeTransport()
				sent, failed, err := notifications.NewWorker(notifications.NewPgOutbox(pool.Pool), transport, logger).
					DispatchBatch(ctx)
				if err != nil {
					return err
				}
				logger.Info("Dispatch finished", "sent", sent, "failed", failed)
				return nil
			})
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func withDB(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pool, err := db.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

func withService(fn func(ctx context.Context, svc *watch.Service) error) error {
	return withDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
		stations, err := station.Load(cfg.StationsFile)
		if err != nil {
			return err
		}
		svc := watch.NewService(watch.NewPostgresStore(pool.Pool), stations, cfg.Location(), logger)
		return fn(ctx, svc)
	})
}

func parseStatuses(raw []string) ([]watch.Status, error) {
	out := make([]watch.Status, 0, len(raw))
	for _, r := range raw {
		s := watch.Status(strings.ToUpper(strings.TrimSpace(r)))
		if !s.Valid() {
			return nil, fmt.Errorf("unknown status %q", r)
		}
		out = append(out, s)
	}
	return out, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
