package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

const activeWindow = 24 * time.Hour

// Funnel summarises onboarding progress across every identity.
func (o *Orchestrator) Funnel(ctx context.Context) (FunnelReport, error) {
	all, err := o.progress.List(ctx)
	if err != nil {
		return FunnelReport{}, err
	}

	now := o.now()
	report := FunnelReport{
		TotalUsers:      len(all),
		CompletionRates: make(map[string]int, entity.StepCount),
	}
	for s := 1; s <= entity.StepCount; s++ {
		report.CompletionRates[stepKey(s)] = 0
	}

	var timeSpent float64
	for _, p := range all {
		if now.Sub(p.LastActivity) < activeWindow {
			report.ActiveUsers++
		}
		for _, s := range p.CompletedSteps {
			report.CompletionRates[stepKey(s)]++
		}
		if p.AllComplete() {
			report.CompletedAll++
		}
		timeSpent += p.TimeSpent
	}
	if len(all) > 0 {
		report.AverageTimeSpent = timeSpent / float64(len(all))
	}
	return report, nil
}

func stepKey(step int) string {
	return fmt.Sprintf("step%d", step)
}
