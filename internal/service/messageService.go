package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/v1adis1av28/level3/MedReminder/internal/models"
)

const DEFAULT_GATEWAY_TIMEOUT = 10 * time.Second

// GatewaySender delivers text messages through an UltraMsg style HTTP API:
// a form POST of token, to and body to <base>/messages/chat.
type GatewaySender struct {
	BaseURL string
	Token   string
	client  *http.Client
	log     zerolog.Logger
}

func NewGatewaySender(baseURL, token string, timeout time.Duration, log zerolog.Logger) *GatewaySender {
	if timeout <= 0 {
		timeout = DEFAULT_GATEWAY_TIMEOUT
	}
	return &GatewaySender{
		BaseURL: baseURL,
		Token:   token,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Send never returns an error: every failure ends up in the outcome detail.
func (g *GatewaySender) Send(ctx context.Context, phone, message string) (outcome models.DispatchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = models.DispatchOutcome{Succeeded: false, Detail: fmt.Sprintf("send panicked: %v", r)}
		}
	}()

	start := time.Now()
	form := url.Values{}
	form.Set("token", g.Token)
	form.Set("to", phone)
	form.Set("body", message)

	endpoint := strings.TrimRight(g.BaseURL, "/") + "/messages/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return models.DispatchOutcome{Succeeded: false, Detail: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Warn().Str("recipient", phone).Err(err).Msg("gateway http error")
		return models.DispatchOutcome{Succeeded: false, Detail: fmt.Sprintf("http error: %v", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		g.log.Warn().
			Str("recipient", phone).
			Int("status", resp.StatusCode).
			Dur("duration", time.Since(start)).
			Str("response", string(body)).
			Msg("gateway rejected message")
		return models.DispatchOutcome{Succeeded: false, Detail: string(body)}
	}

	g.log.Debug().
		Str("recipient", phone).
		Dur("duration", time.Since(start)).
		Msg("gateway accepted message")
	return models.DispatchOutcome{Succeeded: true, Detail: "message sent"}
}
