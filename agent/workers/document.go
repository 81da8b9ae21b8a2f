package workers

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	"github.com/tanpawarit/chative-task-router/pkg/pdftext"
)

const (
	ArtifactSummary    = "summary"
	ArtifactTranscript = "transcript"
	ArtifactNews       = "news"
	ArtifactBooking    = "booking"
	ArtifactSentiment  = "sentiment"

	documentInstruction = "Summarize the following document:"
	audioInstruction    = "Summarize the following meeting transcript:"
)

// DocumentSummarizer reads a PDF or text file and summarises its opening.
type DocumentSummarizer struct {
	summarizer contractx.Summarizer
	maxChars   int
	extract    func(ctx context.Context, path string, maxChars int) (string, error)
}

func NewDocumentSummarizer(summarizer contractx.Summarizer, maxChars int) *DocumentSummarizer {
	return &DocumentSummarizer{summarizer: summarizer, maxChars: maxChars, extract: pdftext.Extract}
}

func (w *DocumentSummarizer) Invoke(ctx context.Context, req contractx.WorkerRequest) (contractx.WorkerResult, error) {
	path := strings.TrimSpace(req.Input)
	if path == "" {
		return contractx.WorkerResult{}, fmt.Errorf("%w: no document path", contractx.ErrValidation)
	}

	text, err := w.extract(ctx, path, w.maxChars)
	if err != nil {
		return contractx.WorkerResult{}, err
	}
	summary, err := w.summarizer.Summarize(ctx, documentInstruction, text)
	if err != nil {
		return contractx.WorkerResult{}, err
	}
	return contractx.TextResult(summary, map[string]string{ArtifactSummary: summary}), nil
}

// AudioSummarizer transcribes an audio file and summarises the transcript.
type AudioSummarizer struct {
	transcriber contractx.Transcriber
	summarizer  contractx.Summarizer
}

func NewAudioSummarizer(transcriber contractx.Transcriber, summarizer contractx.Summarizer) *AudioSummarizer {
	return &AudioSummarizer{transcriber: transcriber, summarizer: summarizer}
}

func (w *AudioSummarizer) Invoke(ctx context.Context, req contractx.WorkerRequest) (contractx.WorkerResult, error) {
	path := strings.TrimSpace(req.Input)
	if path == "" {
		return contractx.WorkerResult{}, fmt.Errorf("%w: no audio path", contractx.ErrValidation)
	}
	if w.transcriber == nil {
		return contractx.WorkerResult{}, fmt.Errorf("%w: transcription is not configured", contractx.ErrValidation)
	}

	transcript, err := w.transcriber.Transcribe(ctx, path)
	if err != nil {
		return contractx.WorkerResult{}, err
	}
	summary, err := w.summarizer.Summarize(ctx, audioInstruction, transcript)
	if err != nil {
		return contractx.WorkerResult{}, err
	}
	return contractx.TextResult(summary, map[string]string{
		ArtifactTranscript: transcript,
		ArtifactSummary:    summary,
	}), nil
}
