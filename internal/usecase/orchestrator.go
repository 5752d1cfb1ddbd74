package usecase

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

const (
	OutcomeAck       = "ack"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

type OrchestratorConfig struct {
	// CallTimeout bounds each collaborator call.
	CallTimeout    time.Duration
	IdempotencyTTL time.Duration
	// BatchParallelism limits how many subjects a batch handles at once.
	BatchParallelism int
}

// Result describes what happened to one event. A nil error from Handle is an
// Ack, including duplicates.
type Result struct {
	Identity    entity.Identity  `json:"email,omitempty"`
	Kind        entity.EventKind `json:"kind"`
	Duplicate   bool             `json:"duplicate,omitempty"`
	Effects     []EffectOutcome  `json:"effects,omitempty"`
	Progress    *entity.Progress `json:"progress,omitempty"`
	AllComplete bool             `json:"allComplete,omitempty"`
	Sequence    string           `json:"sequence,omitempty"`
}

type Orchestrator struct {
	policy    *SequencePolicy
	progress  *ProgressStore
	idem      entity.IdempotencyStore
	email     EmailProvider
	customers CustomerDirectory
	analytics AnalyticsSink
	removals  RemovalScheduler
	ledger    entity.RemovalLedger
	links     LinkIssuer
	tasks     *BestEffort
	recorder  Recorder
	logger    *zap.Logger
	cfg       OrchestratorConfig
	now       func() time.Time
}

func NewOrchestrator(
	policy *SequencePolicy,
	progress *ProgressStore,
	idem entity.IdempotencyStore,
	email EmailProvider,
	customers CustomerDirectory,
	analytics AnalyticsSink,
	removals RemovalScheduler,
	links LinkIssuer,
	tasks *BestEffort,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tasks == nil {
		tasks = NewBestEffort(cfg.CallTimeout, logger)
	}
	if cfg.BatchParallelism <= 0 {
		cfg.BatchParallelism = 8
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	return &Orchestrator{
		policy:    policy,
		progress:  progress,
		idem:      idem,
		email:     email,
		customers: customers,
		analytics: analytics,
		removals:  removals,
		links:     links,
		tasks:     tasks,
		recorder:  nopRecorder{},
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (o *Orchestrator) WithRecorder(r Recorder) *Orchestrator {
	if r != nil {
		o.recorder = r
	}
	return o
}

// WithRemovalLedger guards deferred removals against re-subscription.
func (o *Orchestrator) WithRemovalLedger(l entity.RemovalLedger) *Orchestrator {
	if l != nil {
		o.ledger = l
	}
	return o
}

func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Handle processes one lifecycle event.
func (o *Orchestrator) Handle(ctx context.Context, ev entity.LifecycleEvent) (Result, error) {
	res := Result{Kind: ev.Kind}

	if ev.Kind == entity.EventStepCompleted && !entity.ValidStep(ev.Step) {
		o.recorder.EventHandled(ev.Kind, OutcomeFailed)
		return res, invalidStep(entity.ErrInvalidStep)
	}

	// O e-mail precisa estar resolvido antes de qualquer chamada ao provedor de e-mail.
	id, err := o.resolveIdentity(ctx, ev)
	if err != nil {
		o.recorder.EventHandled(ev.Kind, OutcomeFailed)
		return res, err
	}
	ev.Identity = id
	res.Identity = id

	var key string
	if ev.TransactionID != "" {
		key = entity.IdempotencyKey(id, ev.Kind, ev.TransactionID)
		fresh, err := o.idem.MarkProcessed(ctx, key, o.cfg.IdempotencyTTL)
		if err != nil {
			o.recorder.EventHandled(ev.Kind, OutcomeFailed)
			return res, unavailable("idempotency record", err)
		}
		if !fresh {
			o.logger.Info("duplicate event ignored",
				zap.String("kind", string(ev.Kind)),
				zap.String("transaction_id", ev.TransactionID),
			)
			res.Duplicate = true
			o.recorder.EventHandled(ev.Kind, OutcomeDuplicate)
			return res, nil
		}
	}

	plan := o.policy.Resolve(ev)
	if plan.IsEmpty() {
		o.logger.Debug("no side effects for event", zap.String("kind", string(ev.Kind)))
	}
	var justCompleted bool
	res.Effects = o.dispatchFor(ev, plan, &res, &justCompleted).Execute(ctx)

	if failed := firstFailure(res.Effects, plan.Primary); failed != nil {
		if key != "" {
			if err := o.idem.Release(context.WithoutCancel(ctx), key); err != nil {
				o.logger.Error("failed to release idempotency key", zap.String("key", key), zap.Error(err))
			}
		}
		o.logSecondaryFailures(ev, res.Effects, plan.Primary)
		o.recorder.SideEffectFailed(plan.Primary)
		o.recorder.EventHandled(ev.Kind, OutcomeFailed)
		if errors.Is(failed.Err(), entity.ErrInvalidStep) {
			return res, invalidStep(failed.Err())
		}
		return res, unavailable(failed.Name, failed.Err())
	}

	o.logSecondaryFailures(ev, res.Effects, plan.Primary)
	o.track(ev, plan, res, justCompleted)
	o.recorder.EventHandled(ev.Kind, OutcomeAck)
	return res, nil
}

func (o *Orchestrator) resolveIdentity(ctx context.Context, ev entity.LifecycleEvent) (entity.Identity, error) {
	raw := ev.Identity.String()
	if raw == "" && ev.CustomerID != "" {
		if o.customers == nil {
			return "", unavailable("customer lookup", errors.New("no customer directory configured"))
		}
		lookupCtx, cancel := o.callContext(ctx)
		defer cancel()

		email, err := o.customers.RetrieveCustomerEmail(lookupCtx, ev.CustomerID)
		if err != nil {
			o.recorder.SideEffectFailed(entity.EffectResolveEmail)
			return "", unavailable("customer lookup", err)
		}
		raw = email
	}

	id, err := entity.ParseIdentity(raw)
	if err != nil {
		return "", invalidIdentity(err)
	}
	return id, nil
}

func (o *Orchestrator) dispatchFor(ev entity.LifecycleEvent, plan entity.SequencePlan, res *Result, justCompleted *bool) *dispatch {
	d := newDispatch(o.cfg.CallTimeout)
	id := ev.Identity

	if ev.Kind == entity.EventStepCompleted {
		d.Add(entity.EffectProgress, "complete_step", func(ctx context.Context) error {
			p, all, just, err := o.progress.completeStep(ctx, id, ev.Step)
			if err != nil {
				return err
			}
			res.Progress = &p
			res.AllComplete = all
			*justCompleted = just
			return nil
		})
	}

	// Roda antes da atualização do contato: uma remoção vencida no meio do
	// caminho não deve sobrescrever o novo estágio.
	if plan.RevokeRemoval && (o.ledger != nil || o.removals != nil) {
		d.Add(entity.EffectRevokeRemoval, "revoke_removal", func(ctx context.Context) error {
			var errs []error
			if o.ledger != nil {
				errs = append(errs, o.ledger.Disarm(ctx, id))
			}
			if o.removals != nil {
				errs = append(errs, o.removals.CancelRemoval(ctx, id))
			}
			return errors.Join(errs...)
		})
	}

	if len(plan.ContactFields) > 0 {
		d.Add(entity.EffectContactUpdate, "upsert_contact", func(ctx context.Context) error {
			return o.email.UpsertContact(ctx, id, plan.ContactFields)
		})
	}

	for _, seq := range plan.EnrollSequences {
		d.Add(entity.EffectEnrollment, "enroll:"+seq, func(ctx context.Context) error {
			return o.email.EnrollInSequence(ctx, id, seq)
		})
	}

	if plan.SendTemplate != "" {
		d.Add(entity.EffectTransactional, "send:"+plan.SendTemplate, func(ctx context.Context) error {
			data := maps.Clone(plan.TemplateData)
			if data == nil {
				data = map[string]any{}
			}
			if plan.DownloadAsset != "" && o.links != nil {
				link, err := o.links.DownloadLink(id, plan.DownloadAsset)
				if err != nil {
					return fmt.Errorf("download link: %w", err)
				}
				data["download_link"] = link
			}
			if ul, ok := o.links.(UnsubscribeLinker); ok {
				if link, err := ul.UnsubscribeLink(id); err == nil {
					data["unsubscribe_link"] = link
				} else {
					o.logger.Debug("unsubscribe link unavailable", zap.Error(err))
				}
			}
			return o.email.SendTransactional(ctx, id, plan.SendTemplate, data)
		})
	}

	if plan.DeferredRemoval > 0 {
		d.Add(entity.EffectSchedule, "schedule_removal", func(ctx context.Context) error {
			if o.removals == nil {
				return errors.New("no removal scheduler configured")
			}
			now := o.now()
			req := entity.RemovalRequest{
				Identity:    id,
				Reason:      string(ev.Kind),
				RequestedAt: now,
				DueAt:       now.Add(plan.DeferredRemoval),
				Generation:  uuid.NewString(),
			}
			if o.ledger != nil {
				// sobrevive ao vencimento pelo tempo de reentregas
				ttl := plan.DeferredRemoval + o.cfg.IdempotencyTTL
				if err := o.ledger.Arm(ctx, id, req.Generation, ttl); err != nil {
					return err
				}
			}
			return o.removals.ScheduleRemoval(ctx, req, plan.DeferredRemoval)
		})
	}

	if plan.CompletionTemplate != "" {
		d.AddIf(func() bool { return *justCompleted }, entity.EffectCompletion, "send:"+plan.CompletionTemplate,
			func(ctx context.Context) error {
				return o.email.SendTransactional(ctx, id, plan.CompletionTemplate, map[string]any{
					"completion_date": timestamp(o.now()),
					"time_spent":      res.Progress.TimeSpent,
				})
			})
	}

	return d
}

// track reports the funnel event in the background.
func (o *Orchestrator) track(ev entity.LifecycleEvent, plan entity.SequencePlan, res Result, justCompleted bool) {
	if o.analytics == nil || plan.AnalyticsEvent == "" {
		return
	}
	o.recordAnalytics(plan.AnalyticsEvent, maps.Clone(plan.AnalyticsParams), ev.ClientID)

	if justCompleted && res.Progress != nil {
		o.recordAnalytics(AnalyticsAllStepsComplete, map[string]any{
			"event_category": "Onboarding",
			"total_time":     res.Progress.TimeSpent,
		}, ev.ClientID)
	}
}

func (o *Orchestrator) recordAnalytics(name string, params map[string]any, clientID string) {
	if o.analytics == nil {
		return
	}
	o.tasks.Go("analytics:"+name, func(ctx context.Context) error {
		err := o.analytics.RecordEvent(ctx, name, params, clientID)
		if err != nil {
			o.recorder.SideEffectFailed(entity.EffectAnalytics)
		}
		return err
	})
}

func (o *Orchestrator) logSecondaryFailures(ev entity.LifecycleEvent, outcomes []EffectOutcome, primary entity.Effect) {
	for _, out := range outcomes {
		if !out.Failed() || out.Effect == primary {
			continue
		}
		o.recorder.SideEffectFailed(out.Effect)
		o.logger.Warn("side effect failed",
			zap.String("kind", string(ev.Kind)),
			zap.String("effect", out.Name),
			zap.Error(out.Err()),
		)
	}
}

func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.cfg.CallTimeout)
}

// CompleteRemoval runs a deferred removal that came due. A removal whose
// generation was revoked or replaced is acknowledged without effect.
func (o *Orchestrator) CompleteRemoval(ctx context.Context, req entity.RemovalRequest) error {
	id, err := entity.ParseIdentity(req.Identity.String())
	if err != nil {
		return invalidIdentity(err)
	}

	guarded := o.ledger != nil && req.Generation != ""
	if guarded {
		claimCtx, cancel := o.callContext(ctx)
		current, err := o.ledger.Claim(claimCtx, id, req.Generation)
		cancel()
		if err != nil {
			return unavailable("removal ledger", err)
		}
		if !current {
			o.logger.Info("superseded removal skipped",
				zap.String("reason", req.Reason),
				zap.String("generation", req.Generation))
			return nil
		}
	}

	callCtx, cancel := o.callContext(ctx)
	defer cancel()

	fields := map[string]any{
		"lifecycle_stage":  string(entity.StageChurned),
		"customer_status":  "churned",
		"community_access": false,
		"removal_date":     timestamp(o.now()),
	}
	if err := o.email.UpsertContact(callCtx, id, fields); err != nil {
		o.recorder.SideEffectFailed(entity.EffectContactUpdate)
		if guarded {
			// devolve a geração para a reentrega conseguir reivindicar
			if armErr := o.ledger.Arm(context.WithoutCancel(ctx), id, req.Generation, o.cfg.IdempotencyTTL); armErr != nil {
				o.logger.Error("failed to re-arm removal", zap.Error(armErr))
			}
		}
		return unavailable("upsert_contact", err)
	}

	o.logger.Info("deferred removal completed", zap.String("reason", req.Reason))
	return nil
}

// RequestLeadMagnet emits a LeadMagnetRequested event for a visitor.
func (o *Orchestrator) RequestLeadMagnet(ctx context.Context, in LeadMagnetInput) (Result, error) {
	if errs := ValidateInput(in); len(errs) > 0 {
		return Result{Kind: entity.EventLeadMagnetRequested}, ValidationFailed(errs)
	}
	id, err := entity.ParseIdentity(in.Email)
	if err != nil {
		return Result{Kind: entity.EventLeadMagnetRequested}, invalidIdentity(err)
	}
	return o.Handle(ctx, entity.LifecycleEvent{
		Kind:       entity.EventLeadMagnetRequested,
		Identity:   id,
		Product:    in.LeadMagnet,
		Source:     in.Source,
		ClientID:   in.ClientID,
		OccurredAt: o.now(),
	})
}

func (o *Orchestrator) GetProgress(ctx context.Context, id entity.Identity) (entity.Progress, error) {
	return o.progress.Get(ctx, id)
}

func (o *Orchestrator) UpdateProgress(ctx context.Context, id entity.Identity, in UpdateProgressInput) (entity.Progress, error) {
	if errs := ValidateInput(in); len(errs) > 0 {
		return entity.Progress{}, ValidationFailed(errs)
	}
	p, err := o.progress.Merge(ctx, id, in.Patch())
	if err != nil {
		return entity.Progress{}, err
	}

	if in.Action == "step_complete" && in.CurrentStep != nil {
		o.recordAnalytics(AnalyticsStepComplete, map[string]any{
			"event_category": "Onboarding",
			"step_number":    *in.CurrentStep,
		}, "")
	}
	return p, nil
}

// CompleteStep marks a step through the same path as a StepCompleted event.
func (o *Orchestrator) CompleteStep(ctx context.Context, id entity.Identity, step int, clientID string) (Result, error) {
	return o.Handle(ctx, entity.LifecycleEvent{
		Kind:       entity.EventStepCompleted,
		Identity:   id,
		Step:       step,
		ClientID:   clientID,
		OccurredAt: o.now(),
	})
}

func (o *Orchestrator) ResetProgress(ctx context.Context, id entity.Identity) (bool, error) {
	return o.progress.Remove(ctx, id)
}
