package main

import (
	"os"

	"github.com/tanpawarit/chative-task-router/cmd"
	_ "github.com/tanpawarit/chative-task-router/pkg/logger/autoload"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
