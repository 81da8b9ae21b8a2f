// Package autoload initialises the global logger from LOG_* variables on import.
package autoload

import (
	configx "github.com/tanpawarit/chative-task-router/pkg/config"
	logx "github.com/tanpawarit/chative-task-router/pkg/logger"
)

func init() {
	conf, err := configx.New[logx.Config](logx.EnvPrefix)
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*conf)
}
