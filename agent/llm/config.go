package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	openrouterx "github.com/tanpawarit/chative-task-router/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	SupervisorModel       string  `envconfig:"SUPERVISOR_MODEL" split_words:"true"`
	WorkerModel           string  `envconfig:"WORKER_MODEL" split_words:"true"`
	SupervisorTemperature float32 `envconfig:"SUPERVISOR_TEMPERATURE" split_words:"true" default:"0"`
	WorkerTemperature     float32 `envconfig:"WORKER_TEMPERATURE" split_words:"true" default:"-1"`

	// Transcription goes straight to an OpenAI-compatible audio endpoint;
	// OpenRouter does not serve audio models.
	TranscriptionBaseURL string `envconfig:"TRANSCRIPTION_BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	TranscriptionAPIKey  string `envconfig:"TRANSCRIPTION_API_KEY" split_words:"true"`
	TranscriptionModel   string `envconfig:"TRANSCRIPTION_MODEL" split_words:"true" default:"whisper-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the chat model settings for an agent. The supervisor
// has its own overrides; every worker shares the worker overrides.
func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch agentType {
	case contractx.AgentTypeSupervisor:
		if v := strings.TrimSpace(c.SupervisorModel); v != "" {
			modelName = v
		}
		if c.SupervisorTemperature >= 0 {
			temp = c.SupervisorTemperature
		}
	default:
		if v := strings.TrimSpace(c.WorkerModel); v != "" {
			modelName = v
		}
		if c.WorkerTemperature >= 0 {
			temp = c.WorkerTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// Transcription returns client settings for the audio endpoint. The API key
// falls back to the chat key when no dedicated one is set.
func (c Config) Transcription() openrouterx.Config {
	key := strings.TrimSpace(c.TranscriptionAPIKey)
	if key == "" {
		key = strings.TrimSpace(c.APIKey)
	}
	return openrouterx.Config{
		BaseURL: strings.TrimSpace(c.TranscriptionBaseURL),
		APIKey:  key,
		Model:   strings.TrimSpace(c.TranscriptionModel),
		Timeout: c.Timeout,
	}
}
