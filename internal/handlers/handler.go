package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/v1adis1av28/level3/MedReminder/internal/agent"
	"github.com/v1adis1av28/level3/MedReminder/internal/config"
	"github.com/v1adis1av28/level3/MedReminder/internal/metrics"
	"github.com/v1adis1av28/level3/MedReminder/internal/models"
	"github.com/v1adis1av28/level3/MedReminder/internal/service"
	"github.com/wb-go/wbf/ginext"
)

const (
	STATUS_SCHEDULED     = "Reminders scheduled ✔"
	STATUS_NOT_SCHEDULED = "Reminders not scheduled"
)

type Registry interface {
	Register(phone, medicine string, times []string) (string, error)
	Len() int
}

type Runner interface {
	Run(ctx context.Context, prompt string) (agent.Result, error)
}

type Handler struct {
	reminders Registry
	agent     Runner
	log       zerolog.Logger
}

// NewHandler routes requests through the agent when one is given and
// straight to the registry otherwise.
func NewHandler(reminders Registry, runner Runner, log zerolog.Logger) *Handler {
	return &Handler{
		reminders: reminders,
		agent:     runner,
		log:       log,
	}
}

func (h *Handler) CreateReminderHandler(c *ginext.Context) {
	var req models.ReminderRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ginext.H{"error": "error on binding json"})
		return
	}
	if strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.MedicineName) == "" {
		c.JSON(http.StatusBadRequest, ginext.H{"error": "phone and medicine_name are required"})
		return
	}

	if h.agent == nil {
		h.registerDirect(c, req)
		return
	}
	h.registerWithAgent(c, req)
}

func (h *Handler) registerDirect(c *ginext.Context, req models.ReminderRequest) {
	confirmation, err := h.reminders.Register(req.Phone, req.MedicineName, req.DoseTimes)
	if err != nil {
		metrics.ObserveRequest(config.AgentModeDirect, false)
		if errors.Is(err, service.ErrInvalidTime) {
			c.JSON(http.StatusBadRequest, ginext.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ginext.H{"error": "error on scheduling reminder"})
		return
	}

	metrics.ObserveRequest(config.AgentModeDirect, true)
	c.JSON(http.StatusOK, models.ReminderResponse{Response: confirmation, Status: STATUS_SCHEDULED})
}

func (h *Handler) registerWithAgent(c *ginext.Context, req models.ReminderRequest) {
	result, err := h.agent.Run(c.Request.Context(), agent.BuildPrompt(req))
	if err != nil {
		h.log.Warn().Err(err).Str("phone", req.Phone).Msg("agent run failed")
		result.Output = strings.TrimSpace(result.Output + "\n❌ Error: " + err.Error())
	}

	status := STATUS_SCHEDULED
	if !result.Scheduled {
		status = STATUS_NOT_SCHEDULED
	}
	metrics.ObserveRequest(config.AgentModeLLM, result.Scheduled)

	h.log.Info().
		Str("phone", req.Phone).
		Str("medicine", req.MedicineName).
		Str("status", status).
		Msg("reminder request handled")

	c.JSON(http.StatusOK, models.ReminderResponse{Response: result.Output, Status: status})
}

func (h *Handler) HealthHandler(c *ginext.Context) {
	c.JSON(http.StatusOK, ginext.H{"status": "ok", "triggers": h.reminders.Len()})
}
