package api

import "time"

// Config is loaded without a prefix.
type Config struct {
	Addr          string        `envconfig:"HTTP_ADDR" default:":8000"`
	UploadDir     string        `envconfig:"UPLOAD_DIR" default:"uploads"`
	MaxUploadMB   int64         `envconfig:"HTTP_MAX_UPLOAD_MB" default:"32"`
	ReadTimeout   time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"30s"`
	WriteTimeout  time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"5m"`
	ShutdownGrace time.Duration `envconfig:"HTTP_SHUTDOWN_GRACE" default:"10s"`
}
