package models

import (
	"time"

	"github.com/google/uuid"
)

type ReminderRequest struct {
	MedicineName string   `json:"medicine_name"`
	DoseTimes    []string `json:"dose_times"`
	Phone        string   `json:"phone"`
}

type ReminderResponse struct {
	Response string `json:"response"`
	Status   string `json:"status"`
}

// Trigger is one daily dose time bound to a phone and a medicine.
// TimeOfDay is the normalized key, Label is what the user sent.
type Trigger struct {
	ID           uuid.UUID `json:"id"`
	TimeOfDay    string    `json:"timeOfDay"`
	Phone        string    `json:"phone"`
	Medicine     string    `json:"medicine"`
	Label        string    `json:"label"`
	RegisteredAt time.Time `json:"registeredAt"`
	NextRun      time.Time `json:"nextRun"`
}

type NotificationMessage struct {
	Phone string `json:"phone"`
	Body  string `json:"body"`
}

type DispatchOutcome struct {
	Succeeded bool   `json:"succeeded"`
	Detail    string `json:"detail"`
}

type DispatchEvent struct {
	TriggerID uuid.UUID `json:"triggerId"`
	Phone     string    `json:"phone"`
	Medicine  string    `json:"medicine"`
	TimeOfDay string    `json:"timeOfDay"`
	Label     string    `json:"label"`
	FiredAt   time.Time `json:"firedAt"`
	Succeeded bool      `json:"succeeded"`
	Detail    string    `json:"detail"`
}
