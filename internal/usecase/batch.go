package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

type BatchOutcome struct {
	Index  int    `json:"index"`
	Result Result `json:"result"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (o BatchOutcome) Failed() bool { return o.Code != "" }

type BatchResult struct {
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Outcomes  []BatchOutcome `json:"results"`
}

// Retryable reports whether some event failed in a way the sender should
// retry (a primary side effect or a collaborator was unavailable).
func (r BatchResult) Retryable() bool {
	for _, out := range r.Outcomes {
		if out.Code == CodeCollaboratorUnavailable || out.Code == CodeStorage {
			return true
		}
	}
	return false
}

// HandleBatch handles every event independently. Events of the same subject
// run in arrival order; distinct subjects run concurrently.
func (o *Orchestrator) HandleBatch(ctx context.Context, events []entity.LifecycleEvent) BatchResult {
	outcomes := make([]BatchOutcome, len(events))

	groups := make(map[string][]int)
	var order []string
	for i, ev := range events {
		subject := ev.Subject()
		if _, seen := groups[subject]; !seen {
			order = append(order, subject)
		}
		groups[subject] = append(groups[subject], i)
	}

	var g errgroup.Group
	g.SetLimit(o.cfg.BatchParallelism)
	for _, subject := range order {
		indexes := groups[subject]
		g.Go(func() error {
			for _, i := range indexes {
				res, err := o.Handle(ctx, events[i])
				out := BatchOutcome{Index: i, Result: res}
				if err != nil {
					out.Code = ErrorCode(err)
					out.Error = err.Error()
				}
				outcomes[i] = out
			}
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{Total: len(events), Outcomes: outcomes}
	for _, out := range outcomes {
		if out.Failed() {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}
	return result
}
