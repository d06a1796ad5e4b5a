package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/v1adis1av28/level3/MedReminder/internal/metrics"
	"github.com/v1adis1av28/level3/MedReminder/internal/models"
)

var ErrInvalidTime = errors.New("invalid dose time")

const DEFAULT_POLL_INTERVAL = time.Second

var dailyParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

type Sender interface {
	Send(ctx context.Context, phone, message string) models.DispatchOutcome
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.DispatchEvent) error
}

type job struct {
	trigger  models.Trigger
	schedule cron.Schedule
}

// ReminderService owns every registered trigger for the life of the process
// and runs the single dispatch loop over them.
type ReminderService struct {
	sender       Sender
	events       EventPublisher
	log          zerolog.Logger
	now          func() time.Time
	pollInterval time.Duration

	mu        sync.Mutex
	jobs      []*job
	startOnce sync.Once
}

type Option func(*ReminderService)

func WithLogger(log zerolog.Logger) Option {
	return func(s *ReminderService) { s.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(s *ReminderService) { s.now = now }
}

func WithPollInterval(d time.Duration) Option {
	return func(s *ReminderService) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

func WithEvents(events EventPublisher) Option {
	return func(s *ReminderService) {
		if events != nil {
			s.events = events
		}
	}
}

func NewReminderService(sender Sender, opts ...Option) *ReminderService {
	s := &ReminderService{
		sender:       sender,
		events:       nopEvents{},
		log:          zerolog.Nop(),
		now:          time.Now,
		pollInterval: DEFAULT_POLL_INTERVAL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds one daily trigger per dose time. Every call is additive:
// identical registrations produce independent triggers.
func (s *ReminderService) Register(phone, medicine string, times []string) (string, error) {
	now := s.now()
	jobs := make([]*job, 0, len(times))
	var invalid []string

	for _, label := range times {
		key := Normalize(label)
		hour, minute, sec, ok := parseDailyKey(key.Value)
		if !ok {
			invalid = append(invalid, label)
			continue
		}
		schedule, err := dailyParser.Parse(fmt.Sprintf("%d %d %d * * *", sec, minute, hour))
		if err != nil {
			invalid = append(invalid, label)
			continue
		}
		jobs = append(jobs, &job{
			trigger: models.Trigger{
				ID:           uuid.New(),
				TimeOfDay:    fmt.Sprintf("%02d:%02d:%02d", hour, minute, sec),
				Phone:        phone,
				Medicine:     medicine,
				Label:        label,
				RegisteredAt: now,
				NextRun:      schedule.Next(now),
			},
			schedule: schedule,
		})
	}

	if len(invalid) > 0 {
		return "", fmt.Errorf("%w: %s (expected h:mm AM/PM or HH:MM:SS)", ErrInvalidTime, quoteTimes(invalid))
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, jobs...)
	active := len(s.jobs)
	s.mu.Unlock()

	metrics.TriggersRegistered.Add(float64(len(jobs)))
	metrics.TriggersActive.Set(float64(active))

	for _, j := range jobs {
		s.log.Info().
			Str("trigger_id", j.trigger.ID.String()).
			Str("phone", phone).
			Str("medicine", medicine).
			Str("time_of_day", j.trigger.TimeOfDay).
			Str("original", j.trigger.Label).
			Time("next_run", j.trigger.NextRun).
			Msg("reminder scheduled")
	}

	return fmt.Sprintf("✅ Reminders for %s scheduled at %s for %s", medicine, quoteTimes(times), phone), nil
}

// Triggers returns a copy of the registry in registration order.
func (s *ReminderService) Triggers() []models.Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Trigger, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.trigger)
	}
	return out
}

func (s *ReminderService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func BuildMessage(t models.Trigger) models.NotificationMessage {
	return models.NotificationMessage{
		Phone: t.Phone,
		Body:  fmt.Sprintf("💊 Reminder: It's time to take your medicine '%s' at %s", t.Medicine, t.Label),
	}
}

func quoteTimes(times []string) string {
	quoted := make([]string, len(times))
	for i, t := range times {
		quoted[i] = "'" + t + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

type nopEvents struct{}

func (nopEvents) Publish(context.Context, models.DispatchEvent) error { return nil }
