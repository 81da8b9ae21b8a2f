package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	orchestratorx "github.com/tanpawarit/chative-task-router/agent/agents/orchestrator"
)

func newAskCmd() *cobra.Command {
	var (
		sessionID string
		file      string
		review    bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "ask <text>",
		Short: "Run a single conversation turn",
		Long:  "ask runs one turn through the supervisor (or the review worker with --review) and prints the reply. Pass --session to continue a conversation kept in a shared session store.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := orchestratorx.Request{
				SessionID: sessionID,
				Text:      strings.Join(args, " "),
				Route:     orchestratorx.RouteSupervisor,
			}
			if review {
				req.Route = orchestratorx.RouteReview
			}
			if file != "" {
				path, err := filepath.Abs(file)
				if err != nil {
					return fmt.Errorf("resolve file: %w", err)
				}
				req.Text += fmt.Sprintf(" The file to process is at %s.", path)
				req.Attachment = path
			}

			app, err := wireApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			reply, err := app.orchestrator.HandleMessage(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeReply(cmd, reply, asJSON)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id to continue")
	cmd.Flags().StringVar(&file, "file", "", "document or audio file to attach")
	cmd.Flags().BoolVar(&review, "review", false, "send the text to the review worker")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full reply as JSON")
	return cmd
}

func writeReply(cmd *cobra.Command, reply orchestratorx.Reply, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(reply)
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\n\nsession: %s\n", reply.Response, reply.SessionID)
	return err
}
