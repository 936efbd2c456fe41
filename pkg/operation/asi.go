package operation

import (
	"context"
	"math"

	"github.com/aretw0/corefollow/pkg/domain"
)

// asiBand returns the allowed interval and the aim point for item at power (percent).
func (f *Flexible) asiBand(item domain.ScenarioItem, power float64) (lo, hi, aim float64, ok bool) {
	target := item.TargetASI
	if target == domain.TargetInitialASI {
		target = f.initialASI
	}
	switch {
	case item.HasAllowance():
		lo, hi = target+item.ASIMin, target+item.ASIMax
	default:
		if alo, ahi, found := f.engine.ASIAllowance(power); found {
			lo, hi = target+alo, target+ahi
		} else if blo, bhi, found := f.engine.ASIBand(power); found {
			lo, hi = blo, bhi
		} else {
			return 0, 0, 0, false
		}
	}
	return lo, hi, math.Min(math.Max(target, lo), hi), true
}

// controlASI hands the rod sequences to the shape search when the solved ASI has
// left the band of item.
func (f *Flexible) controlASI(ctx context.Context, opt *domain.CalculationOption, item domain.ScenarioItem, res *domain.Result) (*domain.Result, error) {
	lo, hi, aim, ok := f.asiBand(item, f.engine.State().Power*100)
	if !ok {
		return res, nil
	}
	return f.search.ControlASI(ctx, opt, res, lo, hi, aim)
}
