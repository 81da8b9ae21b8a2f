package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	orchestratorx "github.com/tanpawarit/chative-task-router/agent/agents/orchestrator"
	"github.com/tanpawarit/chative-task-router/agent/agents/specialist"
	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	llmx "github.com/tanpawarit/chative-task-router/agent/llm"
	"github.com/tanpawarit/chative-task-router/agent/rating"
	"github.com/tanpawarit/chative-task-router/agent/router"
	"github.com/tanpawarit/chative-task-router/agent/scheduling"
	statex "github.com/tanpawarit/chative-task-router/agent/state"
	"github.com/tanpawarit/chative-task-router/agent/store/pgstore"
	"github.com/tanpawarit/chative-task-router/agent/store/redisstore"
	"github.com/tanpawarit/chative-task-router/agent/store/sqlitestore"
	"github.com/tanpawarit/chative-task-router/agent/workers"
	configx "github.com/tanpawarit/chative-task-router/pkg/config"
	"github.com/tanpawarit/chative-task-router/pkg/mailer"
	"github.com/tanpawarit/chative-task-router/pkg/newsapi"
	"github.com/tanpawarit/chative-task-router/pkg/qstash"
)

// storage is the persistence the engine and the rating filter share.
type storage struct {
	engine  *scheduling.Engine
	ratings rating.Store
	closers []func() error
}

func (s *storage) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

type app struct {
	*storage
	orchestrator *orchestratorx.Orchestrator
	router       *router.Router
}

func wireStorage(ctx context.Context) (*storage, error) {
	conf, err := configx.New[AppConfig]("")
	if err != nil {
		return nil, fmt.Errorf("load app config: %w", err)
	}
	schedConf, err := configx.New[scheduling.Config]("SCHEDULER")
	if err != nil {
		return nil, fmt.Errorf("load scheduler config: %w", err)
	}
	schedOpts, err := schedConf.Options()
	if err != nil {
		return nil, err
	}
	loc, err := schedConf.Location()
	if err != nil {
		return nil, err
	}

	st := &storage{}
	var calendar scheduling.CalendarStore

	switch strings.ToLower(strings.TrimSpace(conf.StorageBackend)) {
	case storageFile, "":
		fileCal, err := scheduling.NewFileCalendar(schedConf.CalendarFile, loc)
		if err != nil {
			return nil, fmt.Errorf("wire calendar file: %w", err)
		}
		ratings, err := rating.NewFileStore(conf.RatingsFile)
		if err != nil {
			return nil, fmt.Errorf("wire rating file: %w", err)
		}
		calendar, st.ratings = fileCal, ratings

	case storageSQLite:
		db, err := sqlitestore.Open(conf.SQLitePath, loc)
		if err != nil {
			return nil, fmt.Errorf("wire sqlite store: %w", err)
		}
		st.closers = append(st.closers, db.Close)
		calendar, st.ratings = db, db

	case storageRedis:
		redisConf, err := configx.New[redisstore.Config]("REDIS")
		if err != nil {
			return nil, fmt.Errorf("load redis config: %w", err)
		}
		client, err := redisstore.NewClient(redisConf.Options(), redisConf.Namespace, loc)
		if err != nil {
			return nil, fmt.Errorf("wire redis store: %w", err)
		}
		st.closers = append(st.closers, client.Close)
		if err := client.Ping(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		calendar, st.ratings = client, client

	case storagePostgres:
		db, err := pgstore.Open(conf.PostgresDSN, loc)
		if err != nil {
			return nil, fmt.Errorf("wire postgres store: %w", err)
		}
		st.closers = append(st.closers, db.Close)
		if err := db.CreateSchema(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("create postgres schema: %w", err)
		}
		calendar, st.ratings = db, db

	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", conf.StorageBackend)
	}

	engine, err := scheduling.NewEngine(calendar, schedOpts...)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("wire scheduling engine: %w", err)
	}
	st.engine = engine

	log.Debug().
		Str("storage", conf.StorageBackend).
		Str("timezone", loc.String()).
		Bool("atomic_booking", schedConf.AtomicBooking).
		Msg("storage wired")
	return st, nil
}

func wireApp(ctx context.Context) (*app, error) {
	conf, err := configx.New[AppConfig]("")
	if err != nil {
		return nil, fmt.Errorf("load app config: %w", err)
	}
	llmConf, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, fmt.Errorf("load llm config: %w", err)
	}
	workerConf, err := configx.New[workers.Config]("")
	if err != nil {
		return nil, fmt.Errorf("load worker config: %w", err)
	}

	st, err := wireStorage(ctx)
	if err != nil {
		return nil, err
	}

	registry, err := specialist.NewRegistry(ctx, *llmConf, st.engine.Location())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("wire llm registry: %w", err)
	}

	deps := workers.Deps{
		Registry:  registry,
		Booker:    st.engine,
		News:      wireNews(),
		Transport: wireTransport(*workerConf),
	}
	if transcriber, err := specialist.NewTranscriber(llmConf.Transcription()); err != nil {
		log.Warn().Err(err).Msg("transcription disabled")
	} else {
		deps.Transcriber = transcriber
	}

	r, err := router.New(registry.Oracle(), workers.Catalog(*workerConf, deps),
		router.WithMaxSteps(conf.RouterMaxSteps),
		router.WithWorkerTimeout(conf.RouterWorkerTimeout),
		router.WithOracleTimeout(conf.RouterOracleTimeout),
	)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("wire router: %w", err)
	}

	sessions, err := wireSessions(*conf)
	if err != nil {
		st.Close()
		return nil, err
	}

	filter, err := rating.NewFilter(st.ratings)
	if err != nil {
		st.Close()
		return nil, err
	}

	orch, err := orchestratorx.New(sessions, r, filter)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("wire orchestrator: %w", err)
	}

	workerIDs := make([]string, 0, len(r.Workers()))
	for _, w := range r.Workers() {
		workerIDs = append(workerIDs, string(w.ID))
	}
	log.Info().Strs("workers", workerIDs).Str("sessions", conf.SessionStore).Msg("router wired")

	return &app{storage: st, orchestrator: orch, router: r}, nil
}

func wireSessions(conf AppConfig) (statex.Store, error) {
	switch strings.ToLower(strings.TrimSpace(conf.SessionStore)) {
	case sessionStoreMemory, "":
		return statex.NewMemoryStore(), nil
	case sessionStoreUpstash:
		upstashConf, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		if err != nil {
			return nil, fmt.Errorf("load upstash config: %w", err)
		}
		store, err := statex.NewUpstashRedisStore(*upstashConf)
		if err != nil {
			return nil, fmt.Errorf("wire upstash session store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown SESSION_STORE %q", conf.SessionStore)
	}
}

// wireNews returns nil when NEWSAPI_* is not configured; the news worker is
// then left out of the catalog.
func wireNews() contractx.NewsSource {
	newsConf, err := configx.New[newsapi.Config]("NEWSAPI")
	if err != nil {
		log.Warn().Err(err).Msg("news disabled")
		return nil
	}
	client, err := newsapi.NewClient(*newsConf)
	if err != nil {
		log.Warn().Err(err).Msg("news disabled")
		return nil
	}
	return workers.NewNewsAPISource(client)
}

func wireTransport(conf workers.Config) contractx.MailTransport {
	switch strings.ToLower(strings.TrimSpace(conf.NotifyTransport)) {
	case transportSMTP, "":
		smtpConf, err := configx.New[mailer.Config]("SMTP")
		if err != nil {
			log.Warn().Err(err).Msg("smtp transport disabled")
			return nil
		}
		client, err := mailer.NewClient(*smtpConf)
		if err != nil {
			log.Warn().Err(err).Msg("smtp transport disabled")
			return nil
		}
		return workers.NewSMTPTransport(client)
	case transportQStash:
		if strings.TrimSpace(conf.NotifyWebhookURL) == "" {
			log.Warn().Msg("qstash transport disabled: NOTIFY_WEBHOOK_URL is empty")
			return nil
		}
		qConf, err := configx.New[qstash.Config]("QSTASH")
		if err != nil {
			log.Warn().Err(err).Msg("qstash transport disabled")
			return nil
		}
		client, err := qstash.NewClient(*qConf)
		if err != nil {
			log.Warn().Err(err).Msg("qstash transport disabled")
			return nil
		}
		return workers.NewQStashTransport(client, conf.NotifyWebhookURL)
	case transportLog:
		return workers.LogTransport{}
	case transportNone:
		return nil
	default:
		log.Warn().Str("transport", conf.NotifyTransport).Msg("unknown NOTIFY_TRANSPORT, notifier disabled")
		return nil
	}
}
