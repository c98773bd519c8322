package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/soyeahso/creatorpilot/internal/config"
)

const defaultCommandTimeout = 10 * time.Second

// CommandHandler returns a handler that runs entry.Command through sh -c
// with the JSON-encoded payload on stdin.
func CommandHandler(entry config.HookEntry) Handler {
	timeout := defaultCommandTimeout
	if entry.Timeout > 0 {
		timeout = time.Duration(entry.Timeout) * time.Millisecond
	}

	return func(ctx context.Context, p Payload) error {
		body, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, "sh", "-c", entry.Command)
		cmd.Stdin = bytes.NewReader(body)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fmt.Errorf("hook %q: %w: %s", entry.Command, err, msg)
			}
			return fmt.Errorf("hook %q: %w", entry.Command, err)
		}
		return nil
	}
}

// RegisterConfig wires every command hook in cfg into m. Returns the number
// of handlers registered.
func RegisterConfig(m *Manager, cfg config.HooksConfig) int {
	groups := []struct {
		event   string
		entries []config.HookEntry
	}{
		{EventMessageSent, cfg.MessageSent},
		{EventSendFailed, cfg.SendFailed},
		{EventConversationAdopted, cfg.ConversationAdopted},
		{EventConversationCleared, cfg.ConversationCleared},
		{EventServerStart, cfg.ServerStart},
		{EventServerStop, cfg.ServerStop},
	}

	n := 0
	for _, g := range groups {
		for i, e := range g.entries {
			m.On(g.event, fmt.Sprintf("config:%s[%d]", g.event, i), CommandHandler(e))
			n++
		}
	}
	return n
}
