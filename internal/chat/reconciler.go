// Package chat owns the canonical chat transcript and keeps it in step
// with the campaign backend.
package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/soyeahso/creatorpilot/internal/config"
	"github.com/soyeahso/creatorpilot/internal/domain"
	"github.com/soyeahso/creatorpilot/internal/hooks"
	"github.com/soyeahso/creatorpilot/internal/logging"
)

// ErrEmptyMessage is returned by Send for blank input.
var ErrEmptyMessage = errors.New("message is empty")

const (
	// GenericFailureMessage is shown when a send fails in transport.
	GenericFailureMessage = "Failed to send message. Please try again."

	// FallbackErrorReply is recorded when the backend flags an error
	// without saying what went wrong.
	FallbackErrorReply = "Sorry, something went wrong while processing your request."
)

// Backend is the chat surface of the campaign backend.
type Backend interface {
	SendMessage(ctx context.Context, req domain.SendMessageRequest) (domain.SendMessageResponse, error)
	GetConversation(ctx context.Context, id string) (domain.ConversationHistory, error)
	DeleteConversation(ctx context.Context, id string) error
}

// KeyValueStore persists the active conversation id.
type KeyValueStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithGreeting sets the assistant turn shown in an empty transcript.
func WithGreeting(text string) Option {
	return func(r *Reconciler) {
		if text != "" {
			r.greeting = text
		}
	}
}

// WithStorageKey sets the key the conversation id is persisted under.
func WithStorageKey(key string) Option {
	return func(r *Reconciler) {
		if key != "" {
			r.storageKey = key
		}
	}
}

// WithNotifier routes transient notifications to n.
func WithNotifier(n Notifier) Option {
	return func(r *Reconciler) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithHooks emits lifecycle events on m.
func WithHooks(m *hooks.Manager) Option {
	return func(r *Reconciler) { r.hooks = m }
}

// WithOnChange registers fn to receive a snapshot after every change.
// fn runs on the goroutine that made the change, outside the lock.
func WithOnChange(fn func(domain.Session)) Option {
	return func(r *Reconciler) { r.onChange = fn }
}

// Reconciler holds the transcript and the active conversation id.
//
// All methods are safe for concurrent use. Network calls run outside the
// lock. Send completions are applied in the order the sends were issued.
// A history load is applied only if it is the most recent load and no
// send or clear has touched the transcript since it started.
//
// Callers must not Send while Snapshot reports LoadingHistory: the send
// supersedes the pending load and the persisted history stays hidden until
// the next Refresh.
type Reconciler struct {
	backend    Backend
	kv         KeyValueStore
	notifier   Notifier
	hooks      *hooks.Manager
	log        *logging.Logger
	greeting   string
	storageKey string
	onChange   func(domain.Session)

	mu      sync.Mutex
	applied *sync.Cond
	convID  string
	turns   []domain.Turn
	sending int
	loading bool

	loadSeq     uint64 // id of the most recently issued history load
	mutations   uint64 // bumped by every send or clear mutation
	clears      uint64 // bumped by every clear
	nextTicket  uint64
	applyTicket uint64

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

// NewReconciler creates a Reconciler. Call Initialize before use.
func NewReconciler(backend Backend, kv KeyValueStore, log *logging.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		backend:    backend,
		kv:         kv,
		notifier:   discardNotifier{},
		log:        log.Sub("chat"),
		greeting:   config.DefaultGreeting,
		storageKey: config.DefaultStorageKey,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.applied = sync.NewCond(&r.mu)
	r.turns = r.greetingTurns()
	r.bgCtx, r.bgCancel = context.WithCancel(context.Background())
	return r
}

func (r *Reconciler) greetingTurns() []domain.Turn {
	return []domain.Turn{domain.AssistantTurn(r.greeting)}
}

// Initialize reads the persisted conversation id and, when one exists,
// rehydrates the transcript from the backend. The transcript shows the
// greeting until the history arrives, and keeps showing it if the fetch
// fails or the conversation is empty. The returned error is informational.
func (r *Reconciler) Initialize(ctx context.Context) error {
	id, ok, err := r.kv.Get(r.storageKey)
	if err != nil {
		r.log.Warn().Err(err).Str("key", r.storageKey).Msg("reading persisted conversation id")
		ok = false
	}
	if !ok {
		id = ""
	}

	r.mu.Lock()
	r.convID = id
	r.turns = r.greetingTurns()
	r.mutations++
	var load historyLoad
	if id != "" {
		load = r.beginLoadLocked(id, true)
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.publish(snap)

	if id == "" {
		r.log.Debug().Msg("no persisted conversation")
		return nil
	}
	return r.runLoad(ctx, load)
}

// Refresh re-fetches the current conversation. No-op without one.
func (r *Reconciler) Refresh(ctx context.Context) error {
	r.mu.Lock()
	if r.convID == "" {
		r.mu.Unlock()
		return nil
	}
	load := r.beginLoadLocked(r.convID, true)
	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.publish(snap)

	return r.runLoad(ctx, load)
}

// historyLoad identifies one history fetch. The load is applied only if
// seq is still the latest load and mark still matches the mutation count.
type historyLoad struct {
	id       string
	seq      uint64
	mark     uint64
	fallback bool // show the greeting when the fetch fails or finds nothing
}

func (r *Reconciler) beginLoadLocked(id string, fallback bool) historyLoad {
	r.loadSeq++
	r.loading = true
	return historyLoad{id: id, seq: r.loadSeq, mark: r.mutations, fallback: fallback}
}

// runLoad fetches the history for a load begun with beginLoadLocked and
// applies it unless it has gone stale.
func (r *Reconciler) runLoad(ctx context.Context, load historyLoad) error {
	id := load.id

	hist, err := r.backend.GetConversation(ctx, id)

	var turns []domain.Turn
	if err == nil && countVisible(hist.Messages) > 0 {
		turns = turnsFromHistory(hist.Messages, func(toolCallID string) {
			r.log.Warn().
				Str("conversation", id).
				Str("toolCallId", toolCallID).
				Msg("tool result has no matching tool call")
		})
	}

	r.mu.Lock()
	if load.seq != r.loadSeq {
		r.mu.Unlock()
		r.log.Debug().Str("conversation", id).Uint64("load", load.seq).Msg("discarding superseded history load")
		return nil
	}
	r.loading = false
	stale := r.mutations != load.mark || r.convID != id
	cancelled := err != nil && ctx.Err() != nil

	switch {
	case stale:
		r.log.Debug().Str("conversation", id).Msg("discarding history load overtaken by a local change")
	case cancelled:
		r.log.Debug().Err(err).Str("conversation", id).Msg("history load cancelled")
	case len(turns) == 0 && !load.fallback:
		// keep the local transcript
	case len(turns) == 0:
		r.turns = r.greetingTurns()
	default:
		r.turns = turns
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.publish(snap)

	if stale || cancelled {
		return nil
	}
	if err != nil {
		r.log.Error().Err(err).Str("conversation", id).Msg("loading conversation history")
		return fmt.Errorf("loading conversation %s: %w", id, err)
	}

	r.log.Debug().Str("conversation", id).Int("turns", len(snap.Turns)).Msg("history loaded")
	r.emit(hooks.EventHistoryLoaded, map[string]any{
		"conversationId": id,
		"turns":          len(snap.Turns),
	})
	return nil
}

// Send appends text as a user turn, posts it to the backend and applies
// the reply. A transport failure leaves the user turn in place, notifies
// the user and is returned wrapped. A reply flagged as an error is
// recorded as an assistant turn.
func (r *Reconciler) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	r.mu.Lock()
	ticket := r.nextTicket
	r.nextTicket++
	clears := r.clears
	req := domain.SendMessageRequest{Message: text, ConversationID: r.convID}
	r.turns = append(slices.Clip(r.turns), domain.UserTurn(text))
	r.mutations++
	r.sending++
	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.publish(snap)

	r.emit(hooks.EventMessageSent, map[string]any{
		"conversationId": req.ConversationID,
		"message":        text,
	})

	resp, err := r.backend.SendMessage(ctx, req)

	r.mu.Lock()
	for r.applyTicket != ticket {
		r.applied.Wait()
	}
	out := r.applyReplyLocked(resp, err, clears)
	r.sending--
	r.applyTicket++
	r.applied.Broadcast()
	snap = r.snapshotLocked()
	r.mu.Unlock()
	r.publish(snap)

	switch {
	case out.discarded:
		r.log.Debug().Msg("discarding reply to a message sent before clear")
		return nil

	case err != nil:
		r.log.Error().Err(err).Str("conversation", req.ConversationID).Msg("sending message")
		r.notifier.Notify(Notification{Level: LevelError, Message: GenericFailureMessage})
		r.emit(hooks.EventSendFailed, map[string]any{
			"conversationId": req.ConversationID,
			"error":          err.Error(),
		})
		return fmt.Errorf("sending message: %w", err)
	}

	if resp.IsError {
		r.log.Warn().Str("conversation", snap.ConversationID).Str("error", resp.Message).Msg("backend reported an error")
		r.notifier.Notify(Notification{Level: LevelError, Message: out.errorText})
	}
	if out.adopted {
		r.log.Info().Str("conversation", snap.ConversationID).Msg("conversation started")
		r.emit(hooks.EventConversationAdopted, map[string]any{
			"conversationId": snap.ConversationID,
			"previous":       out.previous,
		})
	}
	r.emit(hooks.EventResponseApplied, map[string]any{
		"conversationId": snap.ConversationID,
		"toolCalls":      len(resp.ToolCalls),
		"isError":        resp.IsError,
	})
	return nil
}

type replyOutcome struct {
	discarded bool
	adopted   bool
	previous  string
	errorText string
}

// applyReplyLocked folds one send result into the transcript. Must be
// called with r.mu held, in ticket order.
func (r *Reconciler) applyReplyLocked(resp domain.SendMessageResponse, err error, clears uint64) replyOutcome {
	if clears != r.clears {
		return replyOutcome{discarded: true}
	}
	if err != nil {
		return replyOutcome{}
	}

	var out replyOutcome
	next := slices.Clip(r.turns)
	if resp.IsError {
		out.errorText = resp.Message
		if strings.TrimSpace(out.errorText) == "" {
			out.errorText = FallbackErrorReply
		}
		next = append(next, domain.AssistantTurn(out.errorText))
	} else {
		for _, tc := range resp.ToolCalls {
			next = append(next, domain.ToolTurn(tc))
		}
		if strings.TrimSpace(resp.Message) != "" {
			next = append(next, domain.AssistantTurn(resp.Message))
		}
	}
	r.turns = next
	r.mutations++

	if resp.ConversationID != "" && resp.ConversationID != r.convID {
		out.adopted = true
		out.previous = r.convID
		r.convID = resp.ConversationID
		if err := r.kv.Set(r.storageKey, r.convID); err != nil {
			r.log.Error().Err(err).Str("conversation", r.convID).Msg("persisting conversation id")
		}
		r.scheduleRefetch(r.convID)
	}
	return out
}

// scheduleRefetch reloads id in the background so the transcript matches
// the server's log. Must be called with r.mu held.
func (r *Reconciler) scheduleRefetch(id string) {
	load := r.beginLoadLocked(id, false)
	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		_ = r.runLoad(r.bgCtx, load)
	}()
}

// Clear resets the transcript to the greeting and forgets the
// conversation. The backend copy is deleted in the background on a best
// effort basis with the values of ctx; Clear itself always succeeds and
// never waits for it.
func (r *Reconciler) Clear(ctx context.Context) {
	r.mu.Lock()
	id := r.convID
	r.convID = ""
	r.turns = r.greetingTurns()
	r.mutations++
	r.clears++
	r.loadSeq++ // orphan any load in flight
	r.loading = false
	if err := r.kv.Remove(r.storageKey); err != nil {
		r.log.Error().Err(err).Str("key", r.storageKey).Msg("removing persisted conversation id")
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.publish(snap)

	r.emit(hooks.EventConversationCleared, map[string]any{"conversationId": id})

	if id == "" {
		return
	}
	// The delete outlives the caller's cancellation but not Close.
	dctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(r.bgCtx, cancel)
	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		defer stop()
		defer cancel()
		if err := r.backend.DeleteConversation(dctx, id); err != nil {
			r.log.Warn().Err(err).Str("conversation", id).Msg("deleting conversation")
			return
		}
		r.log.Debug().Str("conversation", id).Msg("conversation deleted")
	}()
}

// Snapshot returns a copy of the current session state.
func (r *Reconciler) Snapshot() domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Turns returns a copy of the transcript.
func (r *Reconciler) Turns() []domain.Turn {
	return r.Snapshot().Turns
}

// ConversationID returns the active conversation id, or "".
func (r *Reconciler) ConversationID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.convID
}

// Wait blocks until background refetches and deletes have finished.
func (r *Reconciler) Wait() {
	r.bg.Wait()
	if r.hooks != nil {
		r.hooks.Wait()
	}
}

// Close cancels background work and waits for it to stop.
func (r *Reconciler) Close() {
	r.bgCancel()
	r.Wait()
}

func (r *Reconciler) snapshotLocked() domain.Session {
	return domain.Session{
		ConversationID: r.convID,
		Turns:          slices.Clone(r.turns),
		LoadingHistory: r.loading,
		Sending:        r.sending > 0,
	}
}

func (r *Reconciler) publish(s domain.Session) {
	if r.onChange != nil {
		r.onChange(s)
	}
}

func (r *Reconciler) emit(event string, data map[string]any) {
	if r.hooks != nil {
		r.hooks.EmitAsync(r.bgCtx, event, data)
	}
}
