package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvPrefix is the envconfig prefix for Config: LOG_DEBUG, LOG_PRETTY_FORMAT, LOG_SERVICE.
const EnvPrefix = "LOG"

type Config struct {
	Debug        bool   `split_words:"true" default:"false"`
	PrettyFormat bool   `split_words:"true" default:"false"`
	Service      string `default:"task-router"`
}

var DefaultConfig = &Config{
	Debug:        false,
	PrettyFormat: false,
	Service:      "task-router",
}

func safe(opts ...Config) *Config {
	if len(opts) == 0 {
		return DefaultConfig
	}
	return &opts[0]
}

func Init(opts ...Config) {
	log.Logger = New(os.Stdout, opts...)
}

// New builds a logger writing to w. Init installs one on stdout as the
// global zerolog logger.
func New(w io.Writer, opts ...Config) zerolog.Logger {
	conf := safe(opts...)

	if conf.PrettyFormat {
		w = zerolog.ConsoleWriter{Out: w}
	}
	ctx := zerolog.New(w).With().Timestamp()
	if conf.Service != "" {
		ctx = ctx.Str("service", conf.Service)
	}
	logger := ctx.Logger()

	if conf.Debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	return logger.With().Caller().Stack().Logger()
}
