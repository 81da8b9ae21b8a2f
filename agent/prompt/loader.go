package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
)

var (
	//go:embed template/supervisor.txt
	supervisorRaw string

	//go:embed template/summarizer.txt
	summarizerRaw string

	//go:embed template/notifier.txt
	notifierRaw string

	//go:embed template/scheduler.txt
	schedulerRaw string

	//go:embed template/review.txt
	reviewRaw string
)

// WorkersVar is the template variable the supervisor prompt lists workers in.
const WorkersVar = "workers"

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Supervisor string
	Summarizer string
	Notifier   string
	Scheduler  string
	Review     string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Supervisor: strings.TrimSpace(supervisorRaw),
		Summarizer: strings.TrimSpace(summarizerRaw),
		Notifier:   strings.TrimSpace(notifierRaw),
		Scheduler:  strings.TrimSpace(schedulerRaw),
		Review:     strings.TrimSpace(reviewRaw),
	}
}

func (p PromptSet) Validate() error {
	for name, v := range map[string]string{
		"supervisor": p.Supervisor,
		"summarizer": p.Summarizer,
		"notifier":   p.Notifier,
		"scheduler":  p.Scheduler,
		"review":     p.Review,
	} {
		if v == "" {
			return fmt.Errorf("%w: prompt=%s", contractx.ErrPromptMissing, name)
		}
	}
	if !strings.Contains(p.Supervisor, "{"+WorkersVar+"}") {
		return fmt.Errorf("%w: supervisor prompt has no worker list", contractx.ErrPromptMissing)
	}
	return nil
}
