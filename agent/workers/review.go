package workers

import (
	"context"
	"strings"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	"github.com/tanpawarit/chative-task-router/agent/rating"
)

const (
	positiveReply      = "Thank you for your feedback! " + rating.Prompt + "."
	negativeReplyStart = "We're sorry to hear that. Please fill out this feedback form: "
)

// ReviewAgent answers feedback by sentiment. A positive answer ends with the
// rating prompt the rating filter listens for.
type ReviewAgent struct {
	classifier  contractx.SentimentClassifier
	feedbackURL string
}

func NewReviewAgent(classifier contractx.SentimentClassifier, feedbackURL string) *ReviewAgent {
	return &ReviewAgent{classifier: classifier, feedbackURL: strings.TrimSpace(feedbackURL)}
}

func (w *ReviewAgent) Invoke(ctx context.Context, req contractx.WorkerRequest) (contractx.WorkerResult, error) {
	sentiment, err := w.classifier.Classify(ctx, req.Input)
	if err != nil {
		return contractx.WorkerResult{}, err
	}

	reply := negativeReplyStart + w.feedbackURL
	if sentiment == contractx.SentimentPositive {
		reply = positiveReply
	}
	return contractx.TextResult(reply, map[string]string{ArtifactSentiment: string(sentiment)}), nil
}
