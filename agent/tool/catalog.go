package tool

import (
	"strings"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
)

// Handoffs builds one transfer_to_<worker> tool per reachable worker. The
// tools take no arguments; calling one is the whole message.
func Handoffs(workers []contractx.WorkerInfo) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(workers))
	for _, w := range workers {
		if strings.TrimSpace(string(w.ID)) == "" {
			continue
		}
		infos = append(infos, &schema.ToolInfo{
			Name:        contractx.TransferToolName(w.ID),
			Desc:        handoffDesc(w),
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		})
	}
	return infos
}

func handoffDesc(w contractx.WorkerInfo) string {
	desc := strings.TrimSpace(w.Description)
	if desc == "" {
		return "Transfer the conversation to " + string(w.ID) + "."
	}
	return "Transfer the conversation to " + string(w.ID) + ": " + desc
}

// Resolve maps a tool call back to the worker it hands off to. Names that are
// not handoff tools are returned verbatim so the router can reject them.
func Resolve(call schema.ToolCall) contractx.WorkerID {
	name := strings.TrimSpace(call.Function.Name)
	if id, ok := contractx.WorkerFromToolName(name); ok {
		return id
	}
	return contractx.WorkerID(name)
}

// Describe renders the worker list for the supervisor prompt, one per line.
func Describe(workers []contractx.WorkerInfo) string {
	var b strings.Builder
	for _, w := range workers {
		b.WriteString("- ")
		b.WriteString(string(w.ID))
		if d := strings.TrimSpace(w.Description); d != "" {
			b.WriteString(": ")
			b.WriteString(d)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
