// Package agent is the natural-language front end of the reminder service.
// It talks to any OpenAI compatible chat completion endpoint and lets the
// model call a single tool, schedule_reminder.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/v1adis1av28/level3/MedReminder/internal/models"
)

const (
	Name         = "Healthcare Reminder Assistant"
	Instructions = "You are a Reminder Assistant. " +
		"Take user input about medicine schedules (medicine name, dose times, phone number). " +
		"Use the `schedule_reminder` tool to set WhatsApp reminders."

	DEFAULT_MAX_TURNS = 4
)

var (
	ErrNoChoices     = errors.New("model returned no choices")
	ErrTurnsExceeded = errors.New("agent did not finish within the turn limit")
)

type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Agent struct {
	client   ChatClient
	model    string
	maxTurns int
	tools    *ToolRegistry
	log      zerolog.Logger
}

type Result struct {
	Output    string
	Scheduled bool
}

// NewClient builds an OpenAI SDK client for baseURL, e.g. the Gemini
// OpenAI compatibility endpoint.
func NewClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

func New(client ChatClient, model string, maxTurns int, tools *ToolRegistry, log zerolog.Logger) *Agent {
	if maxTurns <= 0 {
		maxTurns = DEFAULT_MAX_TURNS
	}
	return &Agent{client: client, model: model, maxTurns: maxTurns, tools: tools, log: log}
}

func BuildPrompt(req models.ReminderRequest) string {
	quoted := make([]string, len(req.DoseTimes))
	for i, t := range req.DoseTimes {
		quoted[i] = "'" + t + "'"
	}
	return fmt.Sprintf(
		"I need a reminder for my medicine.\nMedicine Name: %s\nDose Times: [%s]\nPhone Number: %s\n",
		req.MedicineName, strings.Join(quoted, ", "), req.Phone,
	)
}

// Run drives the conversation until the model answers without calling a
// tool. Scheduled reports whether schedule_reminder succeeded at least once.
func (a *Agent) Run(ctx context.Context, prompt string) (Result, error) {
	var res Result
	var lastToolOutput string

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: Instructions},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	for turn := 0; turn < a.maxTurns; turn++ {
		resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    a.model,
			Messages: messages,
			Tools:    a.tools.Definitions(),
		})
		if err != nil {
			return res, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return res, ErrNoChoices
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			res.Output = msg.Content
			return res, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			content, failed := a.tools.Execute(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			a.log.Info().
				Int("turn", turn).
				Str("tool", call.Function.Name).
				Bool("failed", failed).
				Str("result", content).
				Msg("tool call")

			if !failed && call.Function.Name == ScheduleReminderTool {
				res.Scheduled = true
			}
			lastToolOutput = content
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    content,
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
		}
	}

	if res.Scheduled {
		res.Output = lastToolOutput
		return res, nil
	}
	return res, ErrTurnsExceeded
}
