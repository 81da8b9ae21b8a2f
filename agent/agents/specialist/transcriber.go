package specialist

import (
	"context"
	"fmt"
	"os"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	openrouterx "github.com/tanpawarit/chative-task-router/pkg/openrouter"
)

const defaultTranscriptionModel = "whisper-1"

type transcriptionAPI interface {
	New(ctx context.Context, body openaisdk.AudioTranscriptionNewParams, opts ...option.RequestOption) (*openaisdk.Transcription, error)
}

// Transcriber turns an audio file into text through the OpenAI audio API.
type Transcriber struct {
	api   transcriptionAPI
	model string
}

var _ contractx.Transcriber = (*Transcriber)(nil)

func NewTranscriber(cfg openrouterx.Config) (*Transcriber, error) {
	client := openrouterx.NewClient(cfg)
	if client == nil {
		return nil, fmt.Errorf("%w: transcription api key is required", contractx.ErrValidation)
	}
	return newTranscriber(&client.Audio.Transcriptions, cfg.Model), nil
}

func newTranscriber(api transcriptionAPI, model string) *Transcriber {
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultTranscriptionModel
	}
	return &Transcriber{api: api, model: model}
}

func (t *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: audio path is empty", contractx.ErrValidation)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	res, err := t.api.New(ctx, openaisdk.AudioTranscriptionNewParams{
		File:  f,
		Model: openaisdk.AudioModel(t.model),
	})
	if err != nil {
		return "", fmt.Errorf("%w: transcribe %s: %v", contractx.ErrModelInvoke, path, err)
	}
	if res == nil || strings.TrimSpace(res.Text) == "" {
		return "", fmt.Errorf("%w: transcript is empty", contractx.ErrSchemaViolation)
	}
	return strings.TrimSpace(res.Text), nil
}
