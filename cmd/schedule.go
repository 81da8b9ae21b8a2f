package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanpawarit/chative-task-router/agent/scheduling"
)

func newScheduleCmd() *cobra.Command {
	var freeDay string

	cmd := &cobra.Command{
		Use:   "schedule [<time>|<minutes>]",
		Short: "Book a meeting or list free slots without going through the LLM",
		Example: "  router schedule '2025-07-12T11:00:00|60'\n" +
			"  router schedule --free 2025-07-12",
		Args: func(cmd *cobra.Command, args []string) error {
			if freeDay != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := wireStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			if freeDay != "" {
				free, err := st.engine.FreeIntervals(cmd.Context(), strings.TrimSpace(freeDay))
				if err != nil {
					return err
				}
				if len(free) == 0 {
					_, err = fmt.Fprintln(out, scheduling.NoSlot)
					return err
				}
				for _, iv := range free {
					if _, err := fmt.Fprintf(out, "%s - %s\n", iv.Start.Format(scheduling.TimeLayout), iv.End.Format(scheduling.TimeLayout)); err != nil {
						return err
					}
				}
				return nil
			}

			outcome, err := st.engine.ProposeBooking(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, outcome)
			return err
		},
	}
	cmd.Flags().StringVar(&freeDay, "free", "", "list free intervals for a day (YYYY-MM-DD)")
	return cmd
}
