package service

import (
	"context"
	"time"

	"github.com/v1adis1av28/level3/MedReminder/internal/metrics"
	"github.com/v1adis1av28/level3/MedReminder/internal/models"
)

// Start launches the dispatch loop. Only the first call has any effect.
func (s *ReminderService) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.run(ctx)
	})
}

func (s *ReminderService) run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.log.Info().Dur("poll_interval", s.pollInterval).Msg("dispatch loop started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("dispatch loop stopped")
			return
		case <-ticker.C:
			s.RunPending(ctx, s.now())
		}
	}
}

// RunPending fires every trigger whose next run is not after now and
// returns how many fired. Each trigger is moved to its next daily run before
// it is fired, so it cannot fire twice for the same occurrence.
func (s *ReminderService) RunPending(ctx context.Context, now time.Time) int {
	due := s.collectDue(now)
	for _, t := range due {
		s.fire(ctx, t, now)
	}
	return len(due)
}

func (s *ReminderService) collectDue(now time.Time) []models.Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []models.Trigger
	for _, j := range s.jobs {
		if now.Before(j.trigger.NextRun) {
			continue
		}
		due = append(due, j.trigger)
		j.trigger.NextRun = j.schedule.Next(now)
	}
	return due
}

func (s *ReminderService) fire(ctx context.Context, t models.Trigger, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			metrics.DispatchPanicked()
			s.log.Error().
				Str("trigger_id", t.ID.String()).
				Interface("panic", r).
				Msg("reminder callback panicked")
		}
	}()

	msg := BuildMessage(t)
	start := time.Now()
	outcome := s.sender.Send(ctx, msg.Phone, msg.Body)
	took := time.Since(start)
	metrics.ObserveDispatch(outcome.Succeeded, took)

	if outcome.Succeeded {
		s.log.Info().
			Str("trigger_id", t.ID.String()).
			Str("phone", t.Phone).
			Str("time_of_day", t.TimeOfDay).
			Dur("took", took).
			Msg("reminder sent")
	} else {
		s.log.Warn().
			Str("trigger_id", t.ID.String()).
			Str("phone", t.Phone).
			Str("time_of_day", t.TimeOfDay).
			Str("detail", outcome.Detail).
			Msg("reminder not delivered")
	}

	event := models.DispatchEvent{
		TriggerID: t.ID,
		Phone:     t.Phone,
		Medicine:  t.Medicine,
		TimeOfDay: t.TimeOfDay,
		Label:     t.Label,
		FiredAt:   now,
		Succeeded: outcome.Succeeded,
		Detail:    outcome.Detail,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("trigger_id", t.ID.String()).Msg("error on publishing dispatch event")
	}
}
