package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentsys/orchestrator/internal/output"
)

func newOutputCmd() *cobra.Command {
	var tail int
	var filter, format string
	var maxBytes int
	var aggressive, follow bool

	cmd := &cobra.Command{
		Use:   "output <task_id> <agent_id>",
		Short: "Read an agent's raw stream log (text, jsonl, or parsed)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSurface()
			if err != nil {
				return err
			}
			req := output.Request{
				AgentID:            args[1],
				Tail:               tail,
				Filter:             filter,
				Format:             output.Format(format),
				MaxBytes:           maxBytes,
				AggressiveTruncate: aggressive,
			}

			if !follow {
				resp, err := s.GetAgentOutput(args[0], req)
				if err != nil {
					return err
				}
				return printJSON(resp)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return s.FollowAgentOutput(ctx, args[0], req, func(resp *output.Response) {
				_ = printJSON(resp)
			})
		},
	}

	cmd.Flags().IntVar(&tail, "tail", 0, "return only the last N lines")
	cmd.Flags().StringVar(&filter, "filter", "", "regex line filter")
	cmd.Flags().StringVar(&format, "format", string(output.FormatText), "text | jsonl | parsed")
	cmd.Flags().IntVar(&maxBytes, "max-bytes", 0, "truncate the response to this many bytes")
	cmd.Flags().BoolVar(&aggressive, "aggressive-truncate", false, "sample the middle of the log instead of a plain prefix")
	cmd.Flags().BoolVar(&follow, "follow", false, "stream updates until interrupted (spec follow mode)")
	return cmd
}
