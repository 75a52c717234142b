package task

import (
	"context"
	"fmt"
	"math"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/domain/estimate"
)

// MinuteEstimates are the low, mid, high and actual minute figures for a task.
// Without an energy estimate every figure equals the time actually logged.
type MinuteEstimates struct {
	Low    int `json:"low"`
	Mid    int `json:"mid"`
	High   int `json:"high"`
	Actual int `json:"actual"`
}

// Amounts holds a billable amount per estimate. Nil when no rate is known.
type Amounts struct {
	Low    *float64 `json:"low"`
	Mid    *float64 `json:"mid"`
	High   *float64 `json:"high"`
	Actual *float64 `json:"actual"`
}

// Billing is the billing view of one task.
type Billing struct {
	TaskID     string          `json:"task_id"`
	HourlyRate *float64        `json:"hourly_rate"`
	FixedPrice *float64        `json:"fixed_price"`
	Minutes    MinuteEstimates `json:"minutes"`
	Amounts    Amounts         `json:"amounts"`
	// OverTarget is set when logged time exceeds the billing target.
	OverTarget bool `json:"over_target"`
}

// EstimateMinutes computes the minute figures from the effort estimate.
func EstimateMinutes(energy *estimate.Energy, mystery estimate.MysteryFactor, spent int) MinuteEstimates {
	if energy == nil || !energy.Valid() {
		return MinuteEstimates{Low: spent, Mid: spent, High: spent, Actual: spent}
	}
	r := estimate.ForTask(energy, mystery)
	return MinuteEstimates{
		Low:    r.MinMinutes,
		Mid:    int(math.Round(float64(r.MinMinutes+r.MaxMinutes) / 2)),
		High:   r.MaxMinutes,
		Actual: spent,
	}
}

// Amount returns the billable amount for the given minutes: a positive fixed
// price wins, otherwise minutes/60 * rate rounded to cents.
func Amount(fixed *float64, rate *float64, minutes int) *float64 {
	if fixed != nil && *fixed > 0 {
		v := *fixed
		return &v
	}
	if rate == nil || *rate <= 0 {
		return nil
	}
	hours := float64(minutes) / 60
	v := math.Round(hours*(*rate)*100) / 100
	return &v
}

// ComputeBilling builds the billing view from a task, a rate and logged minutes.
func ComputeBilling(t *Task, rate *float64, spent int) Billing {
	m := EstimateMinutes(t.EnergyEstimate, t.MysteryFactor, spent)
	b := Billing{
		TaskID:     t.ID,
		HourlyRate: rate,
		FixedPrice: t.BillingAmount,
		Minutes:    m,
		Amounts: Amounts{
			Low:    Amount(t.BillingAmount, rate, m.Low),
			Mid:    Amount(t.BillingAmount, rate, m.Mid),
			High:   Amount(t.BillingAmount, rate, m.High),
			Actual: Amount(t.BillingAmount, rate, m.Actual),
		},
	}
	if t.BillingTarget != nil && *t.BillingTarget > 0 {
		b.OverTarget = spent > *t.BillingTarget
	}
	return b
}

// Billing returns the billing view for a visible task. The client's hourly
// rate is used when set, otherwise the configured default rate.
func (s *Service) Billing(ctx context.Context, actor auth.Context, id string) (*Billing, error) {
	t, err := s.getVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	spent, err := s.repo.TimeSpent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("summing time entries: %w", err)
	}
	rate, err := s.repo.HourlyRate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolving hourly rate: %w", err)
	}
	if rate == nil && s.defaultRate > 0 {
		r := s.defaultRate
		rate = &r
	}
	b := ComputeBilling(t, rate, spent)
	return &b, nil
}
