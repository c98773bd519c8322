package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/soyeahso/creatorpilot/internal/api"
	"github.com/soyeahso/creatorpilot/internal/chat"
	"github.com/soyeahso/creatorpilot/internal/domain"
	"github.com/soyeahso/creatorpilot/internal/hooks"
	"github.com/soyeahso/creatorpilot/internal/render"
	"github.com/soyeahso/creatorpilot/internal/store"
)

// chatSession bundles the pieces a chat command works with.
type chatSession struct {
	client     *api.Client
	reconciler *chat.Reconciler
	kv         chat.KeyValueStore
	hooks      *hooks.Manager
	db         *store.DB // nil with the memory driver
}

// openChatSession wires the API client, the conversation id store, hooks
// and a reconciler. Notifications go to notifier.
func openChatSession(notifier chat.Notifier) (*chatSession, error) {
	if err := requireConfig(); err != nil {
		return nil, err
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("creating directories: %w", err)
	}

	s := &chatSession{client: api.New(cfg.Backend, log)}

	switch cfg.Storage.Driver {
	case "memory":
		s.kv = store.NewMemoryKV()
		log.Debug().Msg("conversation id kept in memory")
	default:
		dbPath := paths.StoragePath(cfg.Storage)
		db, err := store.Open(dbPath, log)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		s.db = db
		s.kv = store.NewSQLiteKV(db)
		log.Debug().Str("path", dbPath).Msg("conversation id kept in sqlite")
	}

	hm := hooks.NewManager(log)
	s.hooks = hm
	if n := hooks.RegisterConfig(hm, cfg.Hooks); n > 0 {
		log.Debug().Int("hooks", n).Msg("command hooks registered")
	}

	s.reconciler = chat.NewReconciler(s.client, s.kv, log,
		chat.WithGreeting(cfg.Chat.Greeting),
		chat.WithStorageKey(cfg.Chat.StorageKey),
		chat.WithNotifier(notifier),
		chat.WithHooks(hm),
	)
	return s, nil
}

// Close lets pending refetches and hook commands finish, then stops
// background work and releases the database.
func (s *chatSession) Close() {
	s.reconciler.Wait()
	s.hooks.Wait()
	s.reconciler.Close()
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Warn().Err(err).Msg("closing database")
		}
	}
}

// toastNotifier prints notifications as styled toasts.
type toastNotifier struct {
	r *render.Renderer
	w io.Writer
}

func (n toastNotifier) Notify(x chat.Notification) {
	fmt.Fprintln(n.w, n.r.Notification(x))
}

// turnsAfter returns the turns that follow the last user turn with the
// given text, i.e. the answer to that message.
func turnsAfter(turns []domain.Turn, text string) []domain.Turn {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == domain.RoleUser && turns[i].Content == text {
			return turns[i+1:]
		}
	}
	return nil
}

// joinArgs turns command arguments into a message.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
