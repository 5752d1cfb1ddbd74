package usecase

import (
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

// Funnel event names reported to analytics.
const (
	AnalyticsSignUp              = "sign_up"
	AnalyticsPurchase            = "purchase"
	AnalyticsJoinGroup           = "join_group"
	AnalyticsSubscriptionEnded   = "subscription_cancelled"
	AnalyticsSubscriptionPayment = "subscription_payment_succeeded"
	AnalyticsPaymentFailed       = "payment_failed"
	AnalyticsStepComplete        = "sprint0_step_complete"
	AnalyticsAllStepsComplete    = "sprint0_complete"
)

type LeadMagnetPolicy struct {
	Sequence string `yaml:"sequence"`
	Template string `yaml:"template"`
	Asset    string `yaml:"asset"`
}

// PolicyConfig holds the event -> sequence/template mappings. It is usually
// loaded from a YAML file; DefaultPolicyConfig is used otherwise.
type PolicyConfig struct {
	LeadMagnets           map[string]LeadMagnetPolicy `yaml:"lead_magnets"`
	DefaultLeadMagnet     string                      `yaml:"default_lead_magnet"`
	ProductSequences      map[string]string           `yaml:"product_sequences"`
	WelcomeTemplates      map[string]string           `yaml:"welcome_templates"`
	CommunitySequence     string                      `yaml:"community_sequence"`
	ExitSurveyTemplate    string                      `yaml:"exit_survey_template"`
	PaymentFailedTemplate string                      `yaml:"payment_failed_template"`
	CompletionTemplate    string                      `yaml:"completion_template"`
	NurtureSequences      []string                    `yaml:"nurture_sequences"`
	DefaultNurture        string                      `yaml:"default_nurture"`
	DailyProgressTemplate string                      `yaml:"daily_progress_template"`
	CancellationGrace     time.Duration               `yaml:"cancellation_grace"`
	Currency              string                      `yaml:"currency"`
	Products              []entity.Product            `yaml:"products"`
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		LeadMagnets: map[string]LeadMagnetPolicy{
			"sprint0_setup_checklist": {
				Sequence: "validation-series",
				Template: "sprint0-checklist-delivery",
				Asset:    "sprint0-setup-checklist.md",
			},
			"newsletter": {
				Sequence: "newsletter",
				Template: "newsletter-welcome",
			},
		},
		DefaultLeadMagnet: "sprint0_setup_checklist",
		ProductSequences: map[string]string{
			entity.ProductCore:       "core-onboarding",
			entity.ProductCommunity:  "community-onboarding",
			entity.ProductCoaching:   "coaching-onboarding",
			entity.ProductConsulting: "consulting-onboarding",
		},
		WelcomeTemplates: map[string]string{
			entity.ProductCore:       "core-welcome",
			entity.ProductCommunity:  "community-welcome",
			entity.ProductCoaching:   "coaching-welcome",
			entity.ProductConsulting: "consulting-welcome",
		},
		CommunitySequence:     "community-welcome",
		ExitSurveyTemplate:    "exit-survey",
		PaymentFailedTemplate: "payment-failed",
		CompletionTemplate:    "sprint0-complete",
		NurtureSequences:      []string{"pre_purchase", "post_purchase", "re_engagement"},
		DefaultNurture:        "pre_purchase",
		DailyProgressTemplate: "daily-progress",
		CancellationGrace:     30 * 24 * time.Hour,
		Currency:              "USD",
		Products:              entity.DefaultProducts,
	}
}

// SequencePolicy maps a lifecycle event to the plan of side effects it
// requires. Resolve does no I/O and keeps no state.
type SequencePolicy struct {
	cfg PolicyConfig
}

func NewSequencePolicy(cfg PolicyConfig) *SequencePolicy {
	return &SequencePolicy{cfg: cfg}
}

func (p *SequencePolicy) Resolve(ev entity.LifecycleEvent) entity.SequencePlan {
	switch ev.Kind {
	case entity.EventLeadMagnetRequested:
		return p.leadMagnet(ev)
	case entity.EventCheckoutCompleted:
		return p.checkout(ev)
	case entity.EventSubscriptionCreated:
		return p.subscriptionCreated(ev)
	case entity.EventSubscriptionCancelled:
		return p.subscriptionCancelled(ev)
	case entity.EventPaymentSucceeded:
		return p.paymentSucceeded(ev)
	case entity.EventPaymentFailed:
		return p.paymentFailed(ev)
	case entity.EventStepCompleted:
		return p.stepCompleted(ev)
	case entity.EventNurtureRequested:
		return p.nurture(ev)
	case entity.EventDailyProgressDue:
		return p.dailyProgress(ev)
	case entity.EventUnsubscribed:
		return p.unsubscribed(ev)
	default:
		// Tipos novos do upstream: nada a fazer.
		return entity.SequencePlan{}
	}
}

func (p *SequencePolicy) leadMagnet(ev entity.LifecycleEvent) entity.SequencePlan {
	name := ev.Product
	lm, ok := p.cfg.LeadMagnets[name]
	if !ok {
		name = p.cfg.DefaultLeadMagnet
		lm = p.cfg.LeadMagnets[name]
	}
	source := ev.Source
	if source == "" {
		source = "landing_page"
	}

	plan := entity.SequencePlan{
		ContactFields: stageFields(ev, map[string]any{
			"lead_source":     source,
			"lead_magnet":     name,
			"customer_status": "lead",
			"signup_date":     timestamp(ev.OccurredAt),
		}),
		SendTemplate: lm.Template,
		TemplateData: map[string]any{
			"source":        source,
			"lead_magnet":   name,
			"download_date": timestamp(ev.OccurredAt),
		},
		DownloadAsset:   lm.Asset,
		AnalyticsEvent:  AnalyticsSignUp,
		AnalyticsParams: map[string]any{"method": source, "lead_magnet": name},
		Primary:         entity.EffectEnrollment,
	}
	if lm.Sequence != "" {
		plan.EnrollSequences = []string{lm.Sequence}
	} else if lm.Template != "" {
		plan.Primary = entity.EffectTransactional
	} else {
		plan.Primary = entity.EffectContactUpdate
	}
	return plan
}

func (p *SequencePolicy) checkout(ev entity.LifecycleEvent) entity.SequencePlan {
	product := ev.Product
	if _, ok := p.cfg.ProductSequences[product]; !ok {
		product = entity.ProductCore
	}

	plan := entity.SequencePlan{
		ContactFields: stageFields(ev, map[string]any{
			"product_type":    product,
			"customer_status": "active",
			"purchase_date":   timestamp(ev.OccurredAt),
		}),
		SendTemplate: p.cfg.WelcomeTemplates[product],
		TemplateData: map[string]any{
			"product_type":  product,
			"product_name":  p.productName(product),
			"purchase_date": timestamp(ev.OccurredAt),
		},
		RevokeRemoval:  true,
		AnalyticsEvent: AnalyticsPurchase,
		AnalyticsParams: map[string]any{
			"currency":       p.cfg.Currency,
			"transaction_id": ev.TransactionID,
			"items":          []map[string]any{{"item_id": product, "item_name": p.productName(product)}},
		},
		Primary: entity.EffectContactUpdate,
	}
	if seq := p.cfg.ProductSequences[product]; seq != "" {
		plan.EnrollSequences = []string{seq}
	}
	if ev.Amount != nil {
		plan.AnalyticsParams["value"] = dollars(*ev.Amount)
	}
	return plan
}

func (p *SequencePolicy) subscriptionCreated(ev entity.LifecycleEvent) entity.SequencePlan {
	plan := entity.SequencePlan{
		ContactFields: stageFields(ev, map[string]any{
			"community_access":    true,
			"customer_status":     "active",
			"community_join_date": timestamp(ev.OccurredAt),
		}),
		RevokeRemoval:   true,
		AnalyticsEvent:  AnalyticsJoinGroup,
		AnalyticsParams: map[string]any{"group_id": entity.ProductCommunity},
		Primary:         entity.EffectContactUpdate,
	}
	if p.cfg.CommunitySequence != "" {
		plan.EnrollSequences = []string{p.cfg.CommunitySequence}
	}
	return plan
}

func (p *SequencePolicy) subscriptionCancelled(ev entity.LifecycleEvent) entity.SequencePlan {
	return entity.SequencePlan{
		ContactFields: stageFields(ev, map[string]any{
			"customer_status":   "cancelled",
			"cancellation_date": timestamp(ev.OccurredAt),
		}),
		SendTemplate:    p.cfg.ExitSurveyTemplate,
		TemplateData:    map[string]any{"cancellation_date": timestamp(ev.OccurredAt)},
		DeferredRemoval: p.cfg.CancellationGrace,
		AnalyticsEvent:  AnalyticsSubscriptionEnded,
		Primary:         entity.EffectContactUpdate,
	}
}

func (p *SequencePolicy) paymentSucceeded(ev entity.LifecycleEvent) entity.SequencePlan {
	fields := map[string]any{
		"customer_status":   "active",
		"last_payment_date": timestamp(ev.OccurredAt),
	}
	params := map[string]any{"currency": p.cfg.Currency}
	if ev.Amount != nil {
		fields["last_payment_amount"] = amountText(*ev.Amount)
		params["value"] = dollars(*ev.Amount)
	}
	return entity.SequencePlan{
		ContactFields:   stageFields(ev, fields),
		RevokeRemoval:   true,
		AnalyticsEvent:  AnalyticsSubscriptionPayment,
		AnalyticsParams: params,
		Primary:         entity.EffectContactUpdate,
	}
}

func (p *SequencePolicy) paymentFailed(ev entity.LifecycleEvent) entity.SequencePlan {
	data := map[string]any{"failure_date": timestamp(ev.OccurredAt), "currency": p.cfg.Currency}
	params := map[string]any{"currency": p.cfg.Currency}
	if ev.Amount != nil {
		data["failed_amount"] = amountText(*ev.Amount)
		params["value"] = dollars(*ev.Amount)
	}
	return entity.SequencePlan{
		ContactFields:   map[string]any{"customer_status": "past_due"},
		SendTemplate:    p.cfg.PaymentFailedTemplate,
		TemplateData:    data,
		AnalyticsEvent:  AnalyticsPaymentFailed,
		AnalyticsParams: params,
		Primary:         entity.EffectContactUpdate,
	}
}

func (p *SequencePolicy) stepCompleted(ev entity.LifecycleEvent) entity.SequencePlan {
	return entity.SequencePlan{
		CompletionTemplate: p.cfg.CompletionTemplate,
		AnalyticsEvent:     AnalyticsStepComplete,
		AnalyticsParams: map[string]any{
			"event_category": "Onboarding",
			"step_number":    ev.Step,
		},
		Primary: entity.EffectProgress,
	}
}

// NurtureTrack resolves a requested nurture type; empty means the default
// track. Only configured tracks are accepted.
func (p *SequencePolicy) NurtureTrack(sequenceType string) (string, bool) {
	if sequenceType == "" {
		sequenceType = p.cfg.DefaultNurture
	}
	if slices.Contains(p.cfg.NurtureSequences, sequenceType) {
		return sequenceType, true
	}
	return "", false
}

func (p *SequencePolicy) nurture(ev entity.LifecycleEvent) entity.SequencePlan {
	track, ok := p.NurtureTrack(ev.Sequence)
	if !ok {
		return entity.SequencePlan{}
	}
	return entity.SequencePlan{
		EnrollSequences: []string{"nurture-" + track},
		ContactFields: map[string]any{
			"nurture_sequence": track,
			"sequence_start":   timestamp(ev.OccurredAt),
		},
		Primary: entity.EffectEnrollment,
	}
}

// dailyProgress sends the day's content; keys in ev.Data win over "day".
func (p *SequencePolicy) dailyProgress(ev entity.LifecycleEvent) entity.SequencePlan {
	if p.cfg.DailyProgressTemplate == "" {
		return entity.SequencePlan{}
	}
	data := map[string]any{"day": ev.Day}
	maps.Copy(data, ev.Data)
	return entity.SequencePlan{
		SendTemplate: p.cfg.DailyProgressTemplate,
		TemplateData: data,
		Primary:      entity.EffectTransactional,
	}
}

func (p *SequencePolicy) unsubscribed(ev entity.LifecycleEvent) entity.SequencePlan {
	reason := ev.Source
	if reason == "" {
		reason = "user_request"
	}
	return entity.SequencePlan{
		ContactFields: map[string]any{
			"subscribed":         false,
			"unsubscribed_at":    timestamp(ev.OccurredAt),
			"unsubscribe_reason": reason,
		},
		Primary: entity.EffectContactUpdate,
	}
}

func (p *SequencePolicy) productName(slug string) string {
	for _, prod := range p.cfg.Products {
		if prod.Slug == slug {
			return prod.Name
		}
	}
	return slug
}

func stageFields(ev entity.LifecycleEvent, fields map[string]any) map[string]any {
	if stage, ok := entity.StageAfter(ev.Kind); ok {
		fields["lifecycle_stage"] = string(stage)
	}
	return fields
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// money converts minor units (cents) to a decimal amount.
func money(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// dollars is the numeric form analytics expects.
func dollars(cents int64) float64 {
	return money(cents).InexactFloat64()
}

// amountText is the form templates and contact fields display.
func amountText(cents int64) string {
	return money(cents).StringFixed(2)
}
