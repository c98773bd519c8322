package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/soyeahso/creatorpilot/internal/backend"
	"github.com/soyeahso/creatorpilot/internal/config"
	"github.com/soyeahso/creatorpilot/internal/hooks"
	"github.com/soyeahso/creatorpilot/internal/store"
	"github.com/spf13/cobra"
)

func newBackendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Manage the reference campaign backend",
	}

	cmd.AddCommand(newBackendRunCmd())
	return cmd
}

func newBackendRunCmd() *cobra.Command {
	var (
		port      int
		bind      string
		storeKind string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the reference backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireConfig(); err != nil {
				return err
			}

			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			if storeKind != "" {
				cfg.Server.Store = storeKind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			// Conversation log and creator index (SQLite or in-memory)
			var (
				conversations store.ConversationStore
				creators      backend.CreatorSearcher
			)
			if cfg.Server.Store == "sqlite" {
				if err := paths.EnsureDirs(); err != nil {
					return err
				}
				dbPath := paths.ServerDBPath()
				db, err := store.Open(dbPath, log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				conversations = store.NewSQLiteConversationStore(db)
				creators = store.NewCreatorIndex(db)
				log.Info().Str("path", dbPath).Msg("using SQLite conversation store")
			} else {
				conversations = store.NewMemoryConversationStore()
				creators = backend.NewMemoryCreators()
				log.Info().Msg("using in-memory conversation store")
			}

			catalog := backend.NewCatalog(creators)
			if err := catalog.Seed(backend.SeedCreators()); err != nil {
				return fmt.Errorf("seeding creators: %w", err)
			}

			hookMgr := hooks.NewManager(log)
			hooks.RegisterConfig(hookMgr, cfg.Hooks)

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := backend.New(cfg.Server, conversations, catalog, log, backend.WithHooks(hookMgr))
			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (auto, lan, loopback, custom)")
	cmd.Flags().StringVar(&storeKind, "store", "", "conversation store (sqlite, memory)")

	return cmd
}
