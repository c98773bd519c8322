package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/soyeahso/creatorpilot/internal/api"
	"github.com/soyeahso/creatorpilot/internal/config"
	"github.com/soyeahso/creatorpilot/internal/store"
	"github.com/soyeahso/creatorpilot/internal/version"
	"github.com/spf13/cobra"
)

const statusTimeout = 5 * time.Second

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show creatorpilot status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "creatorpilot %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Fprintf(w, "Config:  %s\n", paths.Config)
			fmt.Fprintf(w, "Data:    %s\n", paths.Data)
			fmt.Fprintf(w, "Logs:    %s\n", paths.Logs)
			fmt.Fprintln(w)

			if cfgErr != nil {
				fmt.Fprintf(w, "Config:  error loading: %v\n", cfgErr)
				return nil
			}

			auth := "none"
			if cfg.Backend.Token != "" {
				auth = "bearer"
			}
			fmt.Fprintf(w, "Backend: %s auth=%s timeout=%ds retries=%d\n",
				cfg.Backend.BaseURL, auth, cfg.Backend.TimeoutSeconds, cfg.Backend.Retries)

			ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
			defer cancel()
			if h, err := api.New(cfg.Backend, log).Health(ctx); err != nil {
				fmt.Fprintf(w, "Health:  unreachable (%v)\n", err)
			} else {
				fmt.Fprintf(w, "Health:  %s version=%s uptime=%s\n", h.Status, h.Version, h.Uptime)
			}

			fmt.Fprintf(w, "Storage: driver=%s", cfg.Storage.Driver)
			if cfg.Storage.Driver == "sqlite" {
				fmt.Fprintf(w, " path=%s", paths.StoragePath(cfg.Storage))
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "Chat:    conversation=%s\n", persistedConversation())

			fmt.Fprintf(w, "Server:  port=%d bind=%s store=%s tls=%v\n",
				cfg.Server.Port, cfg.Server.Bind, cfg.Server.Store, cfg.Server.TLS.Enabled)

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(w, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(w, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}

// persistedConversation reads the stored conversation id without creating
// a database that does not exist yet.
func persistedConversation() string {
	if cfg.Storage.Driver != "sqlite" {
		return "(memory, not persisted)"
	}
	dbPath := paths.StoragePath(cfg.Storage)
	if !fileExists(dbPath) {
		return "(none)"
	}
	db, err := store.Open(dbPath, log)
	if err != nil {
		return fmt.Sprintf("(error: %v)", err)
	}
	defer db.Close()

	id, ok, err := store.NewSQLiteKV(db).Get(cfg.Chat.StorageKey)
	switch {
	case err != nil:
		return fmt.Sprintf("(error: %v)", err)
	case !ok:
		return "(none)"
	default:
		return id
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
