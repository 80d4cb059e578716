package kpi

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Level returns the warning level of a value. Values beyond the threshold
// are in danger. With color thresholds, values within the yellow buffer of
// the threshold are a warning.
func (c Cell) Level(v decimal.Decimal) Level {
	if !c.Warn || c.WarnType == "" {
		return Safe
	}
	lo, hi := decimal.NewFromFloat(c.WarnMin), decimal.NewFromFloat(c.WarnMax)
	var danger bool
	switch c.WarnType {
	case Under:
		danger = v.LessThan(lo)
	case Above:
		danger = v.GreaterThan(hi)
	case Outside:
		danger = v.LessThan(lo) || v.GreaterThan(hi)
	case Inside:
		danger = v.GreaterThan(lo) && v.LessThan(hi)
	}
	if danger {
		return Danger
	}
	if c.UseColorThresholds && c.nearLimit(v, lo, hi) {
		return Warning
	}
	return Safe
}

func (c Cell) nearLimit(v, lo, hi decimal.Decimal) bool {
	pct := c.yellow().Div(hundred)
	nearMin := func() bool {
		buf := lo.Abs().Mul(pct)
		return v.GreaterThanOrEqual(lo) && v.LessThan(lo.Add(buf))
	}
	nearMax := func() bool {
		buf := hi.Abs().Mul(pct)
		return v.GreaterThan(hi.Sub(buf)) && v.LessThanOrEqual(hi)
	}
	switch c.WarnType {
	case Under:
		return nearMin()
	case Above:
		return nearMax()
	case Outside:
		return nearMin() || nearMax()
	case Inside:
		buf := hi.Sub(lo).Mul(pct)
		return (v.GreaterThanOrEqual(lo.Sub(buf)) && v.LessThan(lo)) ||
			(v.GreaterThan(hi) && v.LessThanOrEqual(hi.Add(buf)))
	}
	return false
}

var ratioTypes = []Type{ReceivablePayableRatio}

// TargetPercentage returns how much of the target is achieved. For ratios it
// is 100 minus the relative deviation from the target, for other figures it
// is the value over the target. It is never negative.
func (c Cell) TargetPercentage(v decimal.Decimal) decimal.Decimal {
	if c.Target == 0 {
		return decimal.Zero
	}
	target := decimal.NewFromFloat(c.Target)
	var p decimal.Decimal
	if slices.Contains(ratioTypes, c.Type) {
		if v.Equal(target) {
			return hundred
		}
		p = hundred.Sub(v.Sub(target).Div(target).Abs().Mul(hundred))
	} else {
		p = v.Div(target).Mul(hundred)
	}
	return decimal.Max(p, decimal.Zero)
}

// HistoricalRange returns the displayed min and max around v: ±5% without a
// historical period, otherwise ±30% for ratios, ±50% for balances and ±20%
// for the rest.
func (c Cell) HistoricalRange(v decimal.Decimal) (lo, hi decimal.Decimal) {
	if v.IsZero() {
		return decimal.Zero, decimal.Zero
	}
	var spread decimal.Decimal
	name := string(c.Type)
	switch {
	case c.HistoricalPeriodDays == 0:
		spread = decimal.NewFromFloat(0.05)
	case strings.Contains(name, "ratio") || strings.Contains(name, "percent"):
		spread = decimal.NewFromFloat(0.3)
	case strings.Contains(name, "balance") || strings.Contains(name, "cash"):
		spread = decimal.NewFromFloat(0.5)
	default:
		spread = decimal.NewFromFloat(0.2)
	}
	delta := v.Abs().Mul(spread)
	return v.Sub(delta), v.Add(delta)
}
