package cmd

import "time"

// AppConfig is loaded without a prefix.
type AppConfig struct {
	SessionStore   string `envconfig:"SESSION_STORE" default:"memory"`
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"file"`
	RatingsFile    string `envconfig:"RATINGS_FILE" default:"data/ratings.json"`
	SQLitePath     string `envconfig:"SQLITE_PATH" default:"data/router.db"`
	PostgresDSN    string `envconfig:"POSTGRES_DSN"`

	RouterMaxSteps      int           `envconfig:"ROUTER_MAX_STEPS" default:"10"`
	RouterWorkerTimeout time.Duration `envconfig:"ROUTER_WORKER_TIMEOUT" default:"2m"`
	RouterOracleTimeout time.Duration `envconfig:"ROUTER_ORACLE_TIMEOUT" default:"1m"`
}

const (
	sessionStoreMemory  = "memory"
	sessionStoreUpstash = "upstash"

	storageFile     = "file"
	storageSQLite   = "sqlite"
	storageRedis    = "redis"
	storagePostgres = "postgres"

	transportSMTP   = "smtp"
	transportQStash = "qstash"
	transportLog    = "log"
	transportNone   = "none"
)
