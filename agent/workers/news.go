package workers

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	"github.com/tanpawarit/chative-task-router/pkg/newsapi"
)

const (
	newsInstruction = "Summarize these headlines into 5 concise bullet points:"
	noHeadlinesText = "No headlines are available right now."
)

// NewsFetcher gathers top headlines per category in parallel and summarises
// them into a short digest.
type NewsFetcher struct {
	source     contractx.NewsSource
	summarizer contractx.Summarizer
	categories []string
	limit      int
}

func NewNewsFetcher(source contractx.NewsSource, summarizer contractx.Summarizer, categories []string, limit int) *NewsFetcher {
	cats := make([]string, 0, len(categories))
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, c)
		}
	}
	if len(cats) == 0 {
		cats = []string{"technology"}
	}
	return &NewsFetcher{source: source, summarizer: summarizer, categories: cats, limit: limit}
}

func (w *NewsFetcher) Invoke(ctx context.Context, req contractx.WorkerRequest) (contractx.WorkerResult, error) {
	perCategory := make([][]contractx.NewsArticle, len(w.categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range w.categories {
		g.Go(func() error {
			articles, err := w.source.TopHeadlines(gctx, category, w.limit)
			if err != nil {
				return fmt.Errorf("fetch %s headlines: %w", category, err)
			}
			perCategory[i] = articles
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return contractx.WorkerResult{}, err
	}

	var lines []string
	for _, articles := range perCategory {
		for _, a := range articles {
			lines = append(lines, "- "+headlineLine(a))
		}
	}
	if len(lines) == 0 {
		return contractx.TextResult(noHeadlinesText, nil), nil
	}

	log.Debug().Int("headlines", len(lines)).Strs("categories", w.categories).Msg("headlines fetched")

	digest, err := w.summarizer.Summarize(ctx, newsInstruction, strings.Join(lines, "\n"))
	if err != nil {
		return contractx.WorkerResult{}, err
	}
	return contractx.TextResult(digest, map[string]string{ArtifactNews: digest}), nil
}

func headlineLine(a contractx.NewsArticle) string {
	var b strings.Builder
	if a.Category != "" {
		b.WriteString("[" + a.Category + "] ")
	}
	b.WriteString(a.Title)
	if a.Source != "" {
		b.WriteString(" (" + a.Source + ")")
	}
	return b.String()
}

// NewsAPISource adapts the NewsAPI client to the worker contract.
type NewsAPISource struct {
	client *newsapi.Client
}

var _ contractx.NewsSource = (*NewsAPISource)(nil)

func NewNewsAPISource(client *newsapi.Client) *NewsAPISource {
	return &NewsAPISource{client: client}
}

func (s *NewsAPISource) TopHeadlines(ctx context.Context, category string, limit int) ([]contractx.NewsArticle, error) {
	articles, err := s.client.TopHeadlines(ctx, category, limit)
	if err != nil {
		return nil, err
	}
	out := make([]contractx.NewsArticle, 0, len(articles))
	for _, a := range articles {
		out = append(out, contractx.NewsArticle{
			Category:    category,
			Title:       a.Title,
			Description: a.Description,
			Source:      a.Source.Name,
			URL:         a.URL,
		})
	}
	return out, nil
}
