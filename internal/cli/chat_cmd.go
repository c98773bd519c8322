package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/soyeahso/creatorpilot/internal/chat"
	"github.com/spf13/cobra"
)

const replHelp = `Commands:
  /clear    start a new conversation
  /refresh  reload the conversation from the backend
  /history  print the whole conversation
  /help     show this help
  /exit     quit`

func newChatCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the campaign assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rnd := newRenderer(plain)
			out := cmd.OutOrStdout()
			notifier := toastNotifier{r: rnd, w: cmd.ErrOrStderr()}

			sess, err := openChatSession(notifier)
			if err != nil {
				return err
			}
			defer sess.Close()
			r := sess.reconciler
			ctx := cmd.Context()

			if err := r.Initialize(ctx); err != nil {
				log.Debug().Err(err).Msg("initial history load failed")
				notifier.Notify(chat.Notification{Level: chat.LevelError, Message: "Could not load your previous conversation."})
			}
			fmt.Fprintln(out, rnd.Transcript(r.Turns()))
			fmt.Fprintln(out)

			rl, err := readline.NewEx(&readline.Config{
				Prompt:            "› ",
				HistoryFile:       paths.History,
				InterruptPrompt:   "^C",
				EOFPrompt:         "/exit",
				HistorySearchFold: true,
				UniqueEditLine:    true,
				Stdin:             readline.NewCancelableStdin(os.Stdin),
				Stdout:            os.Stdout,
				Stderr:            os.Stderr,
			})
			if err != nil {
				return fmt.Errorf("failed to initialize readline: %w", err)
			}
			defer rl.Close()

			for {
				// sends are synchronous, so input is never read while one is pending
				input, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if len(input) == 0 {
						return nil
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}

				input = strings.TrimSpace(input)
				if input == "" {
					continue
				}

				switch input {
				case "/exit", "/quit":
					return nil
				case "/help":
					fmt.Fprintln(out, replHelp)
				case "/history":
					fmt.Fprintln(out, rnd.Transcript(r.Turns()))
				case "/clear":
					r.Clear(ctx)
					fmt.Fprintln(out, rnd.Transcript(r.Turns()))
				case "/refresh":
					if err := r.Refresh(ctx); err != nil {
						notifier.Notify(chat.Notification{Level: chat.LevelError, Message: "Could not refresh the conversation."})
						continue
					}
					fmt.Fprintln(out, rnd.Transcript(r.Turns()))
				default:
					if strings.HasPrefix(input, "/") {
						fmt.Fprintf(out, "Unknown command %s. Type /help for commands.\n", input)
						continue
					}
					if err := r.Send(ctx, input); err != nil {
						log.Debug().Err(err).Msg("send failed")
						continue
					}
					r.Wait()
					if reply := rnd.Transcript(turnsAfter(r.Turns(), input)); reply != "" {
						fmt.Fprintln(out, reply)
					}
				}
				fmt.Fprintln(out)
			}
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print assistant text without markdown rendering")
	return cmd
}
