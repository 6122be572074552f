package application

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SubsidyPolicy computes the amount the system proposes to reimburse:
// floor(amount * rate), capped at MaxAmount when MaxAmount is positive.
type SubsidyPolicy struct {
	rate      decimal.Decimal
	maxAmount int64
}

func NewSubsidyPolicy(rate string, maxAmount int64) (*SubsidyPolicy, error) {
	if rate == "" {
		rate = "1"
	}
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid subsidy rate %q: %w", rate, err)
	}
	if r.IsNegative() {
		return nil, fmt.Errorf("subsidy rate cannot be negative: %s", rate)
	}
	if maxAmount < 0 {
		return nil, fmt.Errorf("subsidy max amount cannot be negative: %d", maxAmount)
	}
	return &SubsidyPolicy{rate: r, maxAmount: maxAmount}, nil
}

// FullSubsidy proposes the requested amount unchanged.
func FullSubsidy() *SubsidyPolicy {
	return &SubsidyPolicy{rate: decimal.NewFromInt(1)}
}

func (p *SubsidyPolicy) Propose(amount int64) int64 {
	proposed := decimal.NewFromInt(amount).Mul(p.rate).Floor().IntPart()
	if p.maxAmount > 0 && proposed > p.maxAmount {
		proposed = p.maxAmount
	}
	if proposed < 0 {
		proposed = 0
	}
	return proposed
}
