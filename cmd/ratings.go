package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tanpawarit/chative-task-router/agent/rating"
)

func newRatingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ratings",
		Short: "Print the average customer rating",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := wireStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			avg, count, err := rating.Average(cmd.Context(), st.ratings)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "average: %.2f (%d ratings)\n", avg, count)
			return err
		},
	}
}
