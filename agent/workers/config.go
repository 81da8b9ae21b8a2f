package workers

// Config is loaded without a prefix; variable names match the deployment .env.
type Config struct {
	MaxDocumentChars       int      `envconfig:"MAX_DOCUMENT_CHARS" default:"3000"`
	NewsCategories         []string `envconfig:"NEWS_CATEGORIES" default:"technology"`
	NewsLimit              int      `envconfig:"NEWS_LIMIT" default:"10"`
	NotifyTransport        string   `envconfig:"NOTIFY_TRANSPORT" default:"smtp"`
	NotifyDefaultRecipient string   `envconfig:"NOTIFY_DEFAULT_RECIPIENT"`
	NotifyWebhookURL       string   `envconfig:"NOTIFY_WEBHOOK_URL"`
	ReviewFeedbackURL      string   `envconfig:"REVIEW_FEEDBACK_URL" default:"https://feedback-form.com"`
}
