// Package ranking scores a batch of applications for one job, filters them
// through ordered steps and sorts the survivors by match percentage.
package ranking

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/ai"
)

// Filter is a single ranking step.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, deps Deps, apps *Applications) (*Applications, Step, error)
}

// Deps aggregates dependencies shared by all steps.
type Deps struct {
	Logger  *zap.Logger
	Matcher ai.Matcher
	Job     string
}

// Step describes the result of executing a step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
// It reports whether any filter had that name.
func DisableByName(steps []Filter, name, reason string) bool {
	found := false
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
			found = true
		}
	}
	return found
}

// Ranker runs steps in order.
type Ranker struct {
	steps  []Filter
	logger *zap.Logger
}

// New returns a Ranker over steps.
func New(steps []Filter, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{steps: steps, logger: logger}
}

// Steps returns the configured steps.
func (r *Ranker) Steps() []Filter {
	return r.steps
}

// Rank validates every enabled step, applies them in order and returns the
// surviving applications sorted by match percentage. A nil apps is treated
// as an empty batch.
func (r *Ranker) Rank(ctx context.Context, matcher ai.Matcher, job string, apps *Applications) (*Applications, error) {
	if apps == nil {
		apps = &Applications{}
	}

	for _, step := range r.steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	deps := Deps{Logger: r.logger, Matcher: matcher, Job: job}
	for _, step := range r.steps {
		if !step.IsEnabled() {
			r.logger.Info("ranking step disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, deps, apps)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		r.logger.Info("ranking step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)
		apps = next
	}

	apps.Sort()
	r.logger.Info("ranking finished",
		zap.Strings("ranked_applications", apps.IDs()),
		zap.Int("count", apps.Len()),
	)
	return apps, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}
