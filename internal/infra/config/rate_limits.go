package config

import (
	"time"

	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

// Rate limited actions.
const (
	ActionProgressRead  = "progress_read"
	ActionProgressWrite = "progress_write"
	ActionCompleteStep  = "complete_step"
	ActionProgressReset = "progress_reset"
	ActionAnalytics     = "analytics"
	ActionLeadMagnet    = "lead_magnet"
	ActionNurture       = "nurture"
)

// RateLimits are requests allowed per Window for each action.
type RateLimits struct {
	Window        time.Duration `env:"WINDOW" envDefault:"60s"`
	ProgressRead  int           `env:"PROGRESS_READ_MAX" envDefault:"30"`
	ProgressWrite int           `env:"PROGRESS_WRITE_MAX" envDefault:"60"`
	CompleteStep  int           `env:"COMPLETE_STEP_MAX" envDefault:"30"`
	ProgressReset int           `env:"PROGRESS_RESET_MAX" envDefault:"5"`
	Analytics     int           `env:"ANALYTICS_MAX" envDefault:"10"`
	LeadMagnet    int           `env:"LEAD_MAGNET_MAX" envDefault:"10"`
	Nurture       int           `env:"NURTURE_MAX" envDefault:"5"`
}

func (r RateLimits) Rule(action string) usecase.RateRule {
	rule := usecase.RateRule{Window: r.Window}
	switch action {
	case ActionProgressRead:
		rule.Max = r.ProgressRead
	case ActionProgressWrite:
		rule.Max = r.ProgressWrite
	case ActionCompleteStep:
		rule.Max = r.CompleteStep
	case ActionProgressReset:
		rule.Max = r.ProgressReset
	case ActionAnalytics:
		rule.Max = r.Analytics
	case ActionLeadMagnet:
		rule.Max = r.LeadMagnet
	case ActionNurture:
		rule.Max = r.Nurture
	}
	return rule
}
