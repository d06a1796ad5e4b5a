package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const ScheduleReminderTool = "schedule_reminder"

type Tool interface {
	Def() openai.FunctionDefinition
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

type ToolRegistry struct {
	tools map[string]Tool
	order []string
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: map[string]Tool{}}
}

func (r *ToolRegistry) Register(t Tool) {
	name := t.Def().Name
	if _, ok := r.tools[name]; !ok {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Execute runs the named tool. Failures come back as text with failed set,
// so they can be handed to the model as the tool result.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args json.RawMessage) (content string, failed bool) {
	tool, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("unknown tool: %s", name), true
	}
	out, err := tool.Execute(ctx, args)
	if err != nil {
		return "error: " + err.Error(), true
	}
	return out, false
}

func (r *ToolRegistry) Definitions() []openai.Tool {
	defs := make([]openai.Tool, 0, len(r.order))
	for _, name := range r.order {
		def := r.tools[name].Def()
		defs = append(defs, openai.Tool{Type: openai.ToolTypeFunction, Function: &def})
	}
	return defs
}

// Scheduler is the registration side of the reminder service.
type Scheduler interface {
	Register(phone, medicine string, times []string) (string, error)
}

type scheduleReminderTool struct {
	scheduler Scheduler
}

func NewScheduleReminderTool(s Scheduler) Tool {
	return &scheduleReminderTool{scheduler: s}
}

func (t *scheduleReminderTool) Def() openai.FunctionDefinition {
	return openai.FunctionDefinition{
		Name:        ScheduleReminderTool,
		Description: "Schedule WhatsApp reminders for given medicine at specified times.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"phone": {
					"type": "string",
					"description": "Recipient WhatsApp number in international format, e.g. +923001234567"
				},
				"medicine": {
					"type": "string",
					"description": "Name of the medicine"
				},
				"times": {
					"type": "array",
					"items": {"type": "string"},
					"description": "Daily dose times, either h:mm AM/PM or HH:MM:SS"
				}
			},
			"required": ["phone", "medicine", "times"]
		}`),
	}
}

func (t *scheduleReminderTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Phone    string   `json:"phone"`
		Medicine string   `json:"medicine"`
		Times    []string `json:"times"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("bad arguments: %w", err)
	}
	if strings.TrimSpace(in.Phone) == "" || strings.TrimSpace(in.Medicine) == "" {
		return "", fmt.Errorf("phone and medicine are required")
	}
	return t.scheduler.Register(in.Phone, in.Medicine, in.Times)
}
