package nodes

import (
	"fmt"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	"github.com/tanpawarit/chative-task-router/agent/router"
	statex "github.com/tanpawarit/chative-task-router/agent/state"
)

// AppendUserMessage records the user's text. The attachment artifact is
// always rewritten so a turn without a file never sees a previous upload.
func AppendUserMessage(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	msg := statex.UserMessage(in.Text)
	msg.CreatedAt = in.Now
	if err := in.Session.Append(msg); err != nil {
		return nil, err
	}
	in.Session.MergeArtifacts(map[string]string{router.ArtifactAttachment: in.Attachment})
	return in, nil
}
