package router

import (
	"maps"
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	statex "github.com/tanpawarit/chative-task-router/agent/state"
)

const (
	ArtifactSummary    = "summary"
	ArtifactAttachment = "attachment"
)

// DefaultProjection passes the full history, a copy of the artifacts and the
// latest user text.
func DefaultProjection(sess *statex.Session) contractx.WorkerRequest {
	input := ""
	if last, ok := sess.LastMessage(statex.RoleUser); ok {
		input = last.Content
	}
	artifacts := maps.Clone(sess.Artifacts)
	if artifacts == nil {
		artifacts = map[string]string{}
	}
	return contractx.WorkerRequest{
		History:   sess.History(),
		Artifacts: artifacts,
		Input:     input,
	}
}

// SummaryProjection also exposes the last assistant message as the summary
// artifact, so a worker can act on what was just said to the user.
func SummaryProjection(sess *statex.Session) contractx.WorkerRequest {
	req := DefaultProjection(sess)
	if last, ok := sess.LastMessage(statex.RoleAssistant); ok {
		req.Artifacts[ArtifactSummary] = last.Content
	}
	return req
}

var filePathPattern = regexp.MustCompile(`(?:[A-Za-z]:)?[\w./\\~-]*[\w-]+\.(?:pdf|txt|md|mp3|wav|m4a|ogg|flac|webm|mp4)\b`)

// AttachmentProjection sets Input to a file path: the attachment artifact
// when present, otherwise the last path mentioned in the user text.
func AttachmentProjection(sess *statex.Session) contractx.WorkerRequest {
	req := DefaultProjection(sess)
	if path := strings.TrimSpace(req.Artifacts[ArtifactAttachment]); path != "" {
		req.Input = path
		return req
	}
	if path := ExtractPath(req.Input); path != "" {
		req.Input = path
	}
	return req
}

// ExtractPath returns the last file path found in text.
func ExtractPath(text string) string {
	matches := filePathPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return ""
	}
	return strings.TrimRight(matches[len(matches)-1], ".")
}
