package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/soyeahso/creatorpilot/internal/chat"
	"github.com/soyeahso/creatorpilot/internal/render"
	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send one message and print the assistant's answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := joinArgs(args)
			rnd := newRenderer(plain)

			sess, err := openChatSession(toastNotifier{r: rnd, w: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := sess.reconciler.Initialize(ctx); err != nil {
				log.Warn().Err(err).Msg("previous conversation unavailable")
			}
			if err := sess.reconciler.Send(ctx, message); err != nil {
				if errors.Is(err, chat.ErrEmptyMessage) {
					return err
				}
				return fmt.Errorf("message not delivered: %w", err)
			}
			sess.reconciler.Wait()

			if out := rnd.Transcript(turnsAfter(sess.reconciler.Turns(), message)); out != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print assistant text without markdown rendering")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the current conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rnd := newRenderer(plain)
			sess, err := openChatSession(toastNotifier{r: rnd, w: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.reconciler.Initialize(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rnd.Transcript(sess.reconciler.Turns()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print assistant text without markdown rendering")
	return cmd
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the current conversation and delete it on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openChatSession(toastNotifier{r: render.New(cfg.Chat.Width), w: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer sess.Close()

			id, ok, err := sess.kv.Get(cfg.Chat.StorageKey)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No conversation to clear.")
				return nil
			}

			if err := sess.reconciler.Initialize(cmd.Context()); err != nil {
				log.Debug().Err(err).Msg("history unavailable, clearing anyway")
			}

			sess.reconciler.Clear(cmd.Context())
			sess.reconciler.Wait()
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared conversation %s.\n", id)
			return nil
		},
	}
}

func newRenderer(plain bool) *render.Renderer {
	if plain {
		return render.Plain(cfg.Chat.Width)
	}
	return render.New(cfg.Chat.Width)
}
