package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v1adis1av28/level3/MedReminder/internal/agent"
	"github.com/v1adis1av28/level3/MedReminder/internal/models"
	"github.com/v1adis1av28/level3/MedReminder/internal/service"
)

type registerCall struct {
	phone    string
	medicine string
	times    []string
}

type mockScheduler struct {
	calls []registerCall
	err   error
}

func (m *mockScheduler) Register(phone, medicine string, times []string) (string, error) {
	m.calls = append(m.calls, registerCall{phone: phone, medicine: medicine, times: times})
	if m.err != nil {
		return "", m.err
	}
	return "✅ Reminders for " + medicine + " scheduled", nil
}

// scriptedClient answers each completion with the next canned response.
type scriptedClient struct {
	mu        sync.Mutex
	responses []openai.ChatCompletionResponse
	requests  []openai.ChatCompletionRequest
	err       error
}

func (c *scriptedClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return openai.ChatCompletionResponse{}, c.err
	}
	if len(c.responses) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("script exhausted")
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

func toolCallResponse(id, args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{
				ID:       id,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: agent.ScheduleReminderTool, Arguments: args},
			}},
		},
	}}}
}

func textResponse(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text},
	}}}
}

const aspirinArgs = `{"phone":"+1555","medicine":"Aspirin","times":["09:00:00"]}`

func newAgent(client agent.ChatClient, scheduler agent.Scheduler, maxTurns int) *agent.Agent {
	tools := agent.NewToolRegistry()
	tools.Register(agent.NewScheduleReminderTool(scheduler))
	return agent.New(client, "test-model", maxTurns, tools, zerolog.Nop())
}

func TestRun_ToolCallThenAnswer(t *testing.T) {
	scheduler := &mockScheduler{}
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolCallResponse("call_1", aspirinArgs),
		textResponse("Your Aspirin reminder is set for 09:00."),
	}}

	res, err := newAgent(client, scheduler, 0).Run(context.Background(), "remind me")
	require.NoError(t, err)
	assert.True(t, res.Scheduled)
	assert.Equal(t, "Your Aspirin reminder is set for 09:00.", res.Output)
	require.Len(t, scheduler.calls, 1)
	assert.Equal(t, registerCall{phone: "+1555", medicine: "Aspirin", times: []string{"09:00:00"}}, scheduler.calls[0])

	require.Len(t, client.requests, 2)
	first := client.requests[0]
	assert.Equal(t, "test-model", first.Model)
	require.Len(t, first.Tools, 1)
	assert.Equal(t, agent.ScheduleReminderTool, first.Tools[0].Function.Name)
	assert.Equal(t, openai.ChatMessageRoleSystem, first.Messages[0].Role)
	assert.Equal(t, agent.Instructions, first.Messages[0].Content)

	second := client.requests[1].Messages
	last := second[len(second)-1]
	assert.Equal(t, openai.ChatMessageRoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Contains(t, last.Content, "Aspirin")
}

func TestRun_ToolFailureIsNotScheduled(t *testing.T) {
	scheduler := &mockScheduler{err: errors.New("invalid dose time")}
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolCallResponse("call_1", aspirinArgs),
		textResponse("Sorry, I could not schedule that."),
	}}

	res, err := newAgent(client, scheduler, 0).Run(context.Background(), "remind me")
	require.NoError(t, err)
	assert.False(t, res.Scheduled)

	msgs := client.requests[1].Messages
	assert.Equal(t, "error: invalid dose time", msgs[len(msgs)-1].Content)
}

func TestRun_BadToolArguments(t *testing.T) {
	scheduler := &mockScheduler{}
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolCallResponse("call_1", `{"phone":"+1555"}`),
		textResponse("I need the medicine name."),
	}}

	res, err := newAgent(client, scheduler, 0).Run(context.Background(), "remind me")
	require.NoError(t, err)
	assert.False(t, res.Scheduled)
	assert.Empty(t, scheduler.calls)
}

func TestRun_TurnLimit(t *testing.T) {
	t.Run("nothing scheduled", func(t *testing.T) {
		client := &scriptedClient{responses: []openai.ChatCompletionResponse{
			toolCallResponse("a", `not json`),
			toolCallResponse("b", `not json`),
		}}
		_, err := newAgent(client, &mockScheduler{}, 2).Run(context.Background(), "remind me")
		assert.ErrorIs(t, err, agent.ErrTurnsExceeded)
	})

	t.Run("scheduled falls back to tool output", func(t *testing.T) {
		client := &scriptedClient{responses: []openai.ChatCompletionResponse{
			toolCallResponse("a", aspirinArgs),
		}}
		res, err := newAgent(client, &mockScheduler{}, 1).Run(context.Background(), "remind me")
		require.NoError(t, err)
		assert.True(t, res.Scheduled)
		assert.Equal(t, "✅ Reminders for Aspirin scheduled", res.Output)
	})
}

func TestRun_ClientErrors(t *testing.T) {
	_, err := newAgent(&scriptedClient{err: errors.New("quota exceeded")}, &mockScheduler{}, 0).
		Run(context.Background(), "remind me")
	assert.ErrorContains(t, err, "quota exceeded")

	_, err = newAgent(&scriptedClient{responses: []openai.ChatCompletionResponse{{}}}, &mockScheduler{}, 0).
		Run(context.Background(), "remind me")
	assert.ErrorIs(t, err, agent.ErrNoChoices)
}

func TestToolRegistry_UnknownTool(t *testing.T) {
	tools := agent.NewToolRegistry()
	content, failed := tools.Execute(context.Background(), "cancel_reminder", json.RawMessage(`{}`))
	assert.True(t, failed)
	assert.Equal(t, "unknown tool: cancel_reminder", content)
	assert.Empty(t, tools.Definitions())
}

func TestBuildPrompt(t *testing.T) {
	prompt := agent.BuildPrompt(models.ReminderRequest{
		Phone:        "+923001234567",
		MedicineName: "Panadol",
		DoseTimes:    []string{"9:00 AM", "9:00 PM"},
	})
	assert.Equal(t,
		"I need a reminder for my medicine.\nMedicine Name: Panadol\nDose Times: ['9:00 AM', '9:00 PM']\nPhone Number: +923001234567\n",
		prompt)
}

// chatServer mimics an OpenAI compatible /chat/completions endpoint.
func chatServer(t *testing.T, bodies []string, seen *[]map[string]any) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "/v1beta/openai/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		raw, _ := io.ReadAll(r.Body)
		var req map[string]any
		assert.NoError(t, json.Unmarshal(raw, &req))
		*seen = append(*seen, req)

		idx := len(*seen) - 1
		if idx >= len(bodies) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, bodies[idx])
	}))
}

func TestRun_OverHTTP(t *testing.T) {
	bodies := []string{
		`{"id":"1","object":"chat.completion","choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":"","tool_calls":[{"id":"call_9","type":"function","function":{"name":"schedule_reminder","arguments":"{\"phone\":\"+1555\",\"medicine\":\"Aspirin\",\"times\":[\"9:00 AM\"]}"}}]}}]}`,
		`{"id":"2","object":"chat.completion","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Done, reminders set."}}]}`,
	}
	var seen []map[string]any
	srv := chatServer(t, bodies, &seen)
	defer srv.Close()

	scheduler := &mockScheduler{}
	client := agent.NewClient("test-key", srv.URL+"/v1beta/openai/")
	res, err := newAgent(client, scheduler, 0).Run(context.Background(), "remind me")
	require.NoError(t, err)
	assert.True(t, res.Scheduled)
	assert.Equal(t, "Done, reminders set.", res.Output)
	require.Len(t, scheduler.calls, 1)
	assert.Equal(t, []string{"9:00 AM"}, scheduler.calls[0].times)

	require.Len(t, seen, 2)
	msgs, ok := seen[1]["messages"].([]any)
	require.True(t, ok)
	last, ok := msgs[len(msgs)-1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "tool", last["role"])
	assert.Equal(t, "call_9", last["tool_call_id"])
}

type nopSender struct{}

func (nopSender) Send(context.Context, string, string) models.DispatchOutcome {
	return models.DispatchOutcome{Succeeded: true}
}

func TestScheduleReminderTool_RegistersRequestedTimes(t *testing.T) {
	reminders := service.NewReminderService(nopSender{})
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolCallResponse("call_1", `{"phone":"+923001234567","medicine":"Panadol","times":["9:00 AM","21:30:00"]}`),
		textResponse("Reminders set."),
	}}

	res, err := newAgent(client, reminders, 0).Run(context.Background(), agent.BuildPrompt(models.ReminderRequest{
		Phone:        "+923001234567",
		MedicineName: "Panadol",
		DoseTimes:    []string{"9:00 AM", "21:30:00"},
	}))
	require.NoError(t, err)
	assert.True(t, res.Scheduled)

	triggers := reminders.Triggers()
	require.Len(t, triggers, 2)
	for _, tr := range triggers {
		assert.Equal(t, "+923001234567", tr.Phone)
		assert.Equal(t, "Panadol", tr.Medicine)
	}
	assert.Equal(t, "09:00:00", triggers[0].TimeOfDay)
	assert.Equal(t, "9:00 AM", triggers[0].Label)
	assert.Equal(t, "21:30:00", triggers[1].TimeOfDay)
}
