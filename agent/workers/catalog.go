package workers

import (
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	"github.com/tanpawarit/chative-task-router/agent/router"
)

// Deps are the collaborators the reference workers are built from. A worker
// whose collaborators are missing is not registered.
type Deps struct {
	Registry    contractx.Registry
	Transcriber contractx.Transcriber
	News        contractx.NewsSource
	Transport   contractx.MailTransport
	Booker      Booker
}

// Catalog returns the router registrations for every worker that can run
// with deps.
func Catalog(cfg Config, deps Deps) []router.WorkerSpec {
	if deps.Registry == nil {
		return nil
	}
	reg := deps.Registry

	specs := []router.WorkerSpec{{
		ID:          contractx.WorkerDocumentSummarizer,
		Description: "Summarizes an uploaded PDF or text document. Use it when the user shares a document and no summary of it exists yet.",
		Worker:      NewDocumentSummarizer(reg.Summarizer(), cfg.MaxDocumentChars),
		Project:     router.AttachmentProjection,
	}}

	if deps.Transcriber != nil {
		specs = append(specs, router.WorkerSpec{
			ID:          contractx.WorkerAudioSummarizer,
			Description: "Transcribes an uploaded audio file and summarizes the spoken content. Use it when the user shares audio and no summary of it exists yet.",
			Worker:      NewAudioSummarizer(deps.Transcriber, reg.Summarizer()),
			Project:     router.AttachmentProjection,
		})
	} else {
		log.Warn().Str("worker", string(contractx.WorkerAudioSummarizer)).Msg("worker disabled: no transcriber")
	}

	if deps.News != nil {
		specs = append(specs, router.WorkerSpec{
			ID:          contractx.WorkerNewsFetcher,
			Description: "Fetches the latest headlines and returns a five bullet digest. Use it when the user asks for news that is not yet available.",
			Worker:      NewNewsFetcher(deps.News, reg.Summarizer(), cfg.NewsCategories, cfg.NewsLimit),
		})
	} else {
		log.Warn().Str("worker", string(contractx.WorkerNewsFetcher)).Msg("worker disabled: no news source")
	}

	if deps.Transport != nil {
		specs = append(specs, router.WorkerSpec{
			ID:          contractx.WorkerNotifier,
			Description: "Emails an available summary, news digest or message. Use it once the content to send exists and the user asks for it to be sent.",
			Worker:      NewNotifier(reg.MailComposer(), deps.Transport, cfg.NotifyDefaultRecipient),
		})
	} else {
		log.Warn().Str("worker", string(contractx.WorkerNotifier)).Msg("worker disabled: no mail transport")
	}

	if deps.Booker != nil {
		specs = append(specs, router.WorkerSpec{
			ID:          contractx.WorkerMeetingScheduler,
			Description: "Books a meeting in the boss's calendar or proposes the nearest free slot. Use it when the user asks to schedule a meeting.",
			Worker:      NewMeetingScheduler(reg.BookingParser(), deps.Booker),
			Project:     router.SummaryProjection,
		})
	} else {
		log.Warn().Str("worker", string(contractx.WorkerMeetingScheduler)).Msg("worker disabled: no calendar")
	}

	specs = append(specs, router.WorkerSpec{
		ID:          contractx.WorkerReviewAgent,
		Description: "Responds to customer feedback according to its sentiment. Use it when the user reviews the service.",
		Worker:      NewReviewAgent(reg.SentimentClassifier(), cfg.ReviewFeedbackURL),
	})

	return specs
}
