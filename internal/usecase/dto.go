package usecase

import (
	"time"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

type UpdateProgressInput struct {
	CurrentStep    *int           `json:"currentStep" validate:"omitempty,min=1,max=4"`
	CompletedSteps []int          `json:"completedSteps" validate:"omitempty,dive,min=1,max=4"`
	StepProgress   map[string]any `json:"stepProgress"`
	TimeSpent      *float64       `json:"timeSpent" validate:"omitempty,gte=0"`
	Action         string         `json:"action" validate:"omitempty,max=64"`
}

func (in UpdateProgressInput) Patch() entity.ProgressPatch {
	return entity.ProgressPatch{
		CurrentStep:    in.CurrentStep,
		CompletedSteps: in.CompletedSteps,
		StepProgress:   in.StepProgress,
		TimeSpent:      in.TimeSpent,
	}
}

type LeadMagnetInput struct {
	Email      string `json:"email" validate:"required"`
	Source     string `json:"source" validate:"omitempty,max=100"`
	LeadMagnet string `json:"leadMagnet" validate:"omitempty,max=100"`
	ClientID   string `json:"clientId" validate:"omitempty,max=200"`
}

type NurtureInput struct {
	Email        string `json:"email" validate:"required"`
	SequenceType string `json:"sequenceType" validate:"omitempty,max=64"`
	ClientID     string `json:"clientId" validate:"omitempty,max=200"`
}

type DailyProgressInput struct {
	Email   string         `json:"email" validate:"required"`
	Day     int            `json:"day" validate:"required,min=1,max=366"`
	DayData map[string]any `json:"dayData" validate:"required"`
}

// DailyRecipient is one customer of a daily batch. Its email is checked per
// recipient so one bad address does not reject the batch.
type DailyRecipient struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	Progress  any    `json:"progress"`
}

type DailyBatchInput struct {
	Customers  []DailyRecipient `json:"customers" validate:"required,max=1000"`
	Day        int              `json:"day" validate:"required,min=1,max=366"`
	DayContent map[string]any   `json:"dayContent" validate:"required"`
}

type DailyBatchResult struct {
	Total    int            `json:"total"`
	Sent     int            `json:"sent"`
	Failed   int            `json:"failed"`
	Failures []BatchOutcome `json:"failures,omitempty"`
}

type UnsubscribeInput struct {
	Email string `json:"email" validate:"required"`
	Token string `json:"token" validate:"required"`
}

type EventInput struct {
	Kind          string `json:"kind" validate:"required,max=64"`
	Email         string `json:"email" validate:"required_without=CustomerID"`
	CustomerID    string `json:"customer_id"`
	Product       string `json:"product" validate:"omitempty,max=100"`
	Source        string `json:"source" validate:"omitempty,max=100"`
	Amount        *int64 `json:"amount" validate:"omitempty,gte=0"`
	TransactionID string `json:"transaction_id" validate:"omitempty,max=255"`
	Step          int    `json:"step"`
	ClientID      string `json:"client_id"`
}

// Event converts the wire form. The email is canonicalised by Handle.
func (in EventInput) Event(now time.Time) entity.LifecycleEvent {
	return entity.LifecycleEvent{
		Kind:          entity.EventKind(in.Kind),
		Identity:      entity.Identity(in.Email),
		CustomerID:    in.CustomerID,
		Product:       in.Product,
		Source:        in.Source,
		Amount:        in.Amount,
		TransactionID: in.TransactionID,
		Step:          in.Step,
		ClientID:      in.ClientID,
		OccurredAt:    now,
	}
}

type BatchInput struct {
	Events []EventInput `json:"events" validate:"required,min=1,max=500,dive"`
}

type ProgressOutput struct {
	Success     bool            `json:"success"`
	Progress    entity.Progress `json:"progress"`
	Message     string          `json:"message,omitempty"`
	AllComplete *bool           `json:"allComplete,omitempty"`
}

type FunnelReport struct {
	TotalUsers       int            `json:"totalUsers"`
	ActiveUsers      int            `json:"activeUsers"`
	CompletionRates  map[string]int `json:"completionRates"`
	AverageTimeSpent float64        `json:"averageTimeSpent"`
	CompletedAll     int            `json:"completedSprint0"`
}
