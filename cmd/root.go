package cmd

import (
	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/chative-task-router/pkg/config"
	logx "github.com/tanpawarit/chative-task-router/pkg/logger"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "router",
		Short:         "Stateful task router: a supervisor that hands conversation turns to workers",
		Long:          "router runs a supervisor loop that decides, turn by turn, whether to answer the user or hand off to a worker (document, audio, news, notifier, meeting scheduler, review). It can serve HTTP or run single turns from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configx.SetEnvFile(envFile)
			logConf, err := configx.New[logx.Config](logx.EnvPrefix)
			if err != nil {
				return err
			}
			logx.Init(*logConf)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to .env file (default ./.env when present)")

	rootCmd.AddCommand(
		newServeCmd(),
		newAskCmd(),
		newScheduleCmd(),
		newRatingsCmd(),
	)

	return rootCmd
}
