package code

import (
	"context"
	"fmt"
	"strings"

	"github.com/QuesmaOrg/demo-webr-ggplot/runtime"
)

// ResultPolicy decides whether the final value of an evaluation is worth
// printing. Plot objects are excluded because they already reach the user
// through the graphics channel.
type ResultPolicy struct {
	session     runtime.Session
	serializer  *Serializer
	plotClasses []string
}

// NewResultPolicy returns a policy that treats plotClasses as plots.
func NewResultPolicy(s runtime.Session, serializer *Serializer, plotClasses []string) *ResultPolicy {
	if serializer == nil {
		serializer = NewSerializer(s)
	}
	if len(plotClasses) == 0 {
		plotClasses = DefaultPlotClasses
	}
	return &ResultPolicy{session: s, serializer: serializer, plotClasses: plotClasses}
}

// ShouldDisplay reports whether value should be appended as output.
// Any failure during inspection yields false.
func (p *ResultPolicy) ShouldDisplay(ctx context.Context, value *runtime.Handle, visible bool) bool {
	if value == nil || value.IsZero() || !visible {
		return false
	}
	switch value.Type {
	case runtime.TypeNull, runtime.TypeClosure, runtime.TypeBuiltin, runtime.TypeSpecial:
		return false
	}

	isPlot, err := p.IsPlot(ctx, *value)
	if err != nil || isPlot {
		return false
	}

	lines, err := p.serializer.PrintLines(ctx, *value)
	if err != nil {
		return false
	}
	return strings.TrimSpace(strings.Join(lines, "\n")) != ""
}

// IsPlot reports whether h inherits from one of the plot classes.
func (p *ResultPolicy) IsPlot(ctx context.Context, h runtime.Handle) (bool, error) {
	var isPlot bool
	err := withBinding(ctx, p.session, h, func(name string) error {
		var err error
		isPlot, err = evalBool(ctx, p.session, fmt.Sprintf("inherits(%s, %s)", quoteName(name), rStrings(p.plotClasses)))
		return err
	})
	return isPlot, err
}
