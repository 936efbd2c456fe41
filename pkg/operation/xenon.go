package operation

import (
	"context"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/engine"
)

// XenonDynamics re-solves the core as the poison clock advances, with no rod or power
// control. It shows the reactivity drift caused by fission products alone.
type XenonDynamics struct {
	*Operation
}

// NewXenonDynamics creates the operation. Set the duration with WithEndTime or SetEndTime.
func NewXenonDynamics(e *engine.Engine, opts ...Option) *XenonDynamics {
	x := &XenonDynamics{}
	x.Operation = newOperation("xenon", e, x, opts...)
	return x
}

func (x *XenonDynamics) prepare(ctx context.Context) error { return nil }

func (x *XenonDynamics) step(ctx context.Context, dt float64, opt *domain.CalculationOption) (*domain.Result, error) {
	x.hold(opt)
	return x.search.Search(ctx, opt)
}
