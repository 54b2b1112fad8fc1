package ranking

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/cv-matcher/internal/textnorm"
)

// switchable tracks whether a step is enabled and why it was turned off.
type switchable struct {
	disabled bool
	reason   string
}

func (s *switchable) Disable(reason string) {
	s.disabled = true
	s.reason = reason
}

func (s *switchable) IsEnabled() bool { return !s.disabled }

type blankResumeFilter struct {
	switchable
}

// NewBlankResume creates a step that drops resumes with no usable text.
func NewBlankResume() Filter {
	return &blankResumeFilter{}
}

func (f *blankResumeFilter) Name() string { return "blank_resume" }

func (f *blankResumeFilter) Validate() error { return nil }

func (f *blankResumeFilter) Apply(_ context.Context, deps Deps, apps *Applications) (*Applications, Step, error) {
	initial := apps.Len()
	excluded := apps.Exclude(func(app *Application) bool {
		return textnorm.Clean(app.Resume) == ""
	})
	if len(excluded) > 0 {
		deps.Logger.Info("excluding blank resumes",
			zap.Strings("excluded_applications", excluded),
			zap.Int("applications_left", apps.Len()),
		)
	}
	return apps, Step{Initial: initial, Dropped: len(excluded), Left: apps.Len()}, nil
}

func (f *blankResumeFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

type requiredSkillsFilter struct {
	switchable
	skills []string
}

// NewRequiredSkills creates a step that keeps only resumes mentioning every
// skill. It is disabled when skills is empty.
func NewRequiredSkills(skills []string) Filter {
	cleaned := make([]string, 0, len(skills))
	for _, skill := range skills {
		if s := strings.TrimSpace(skill); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	f := &requiredSkillsFilter{skills: cleaned}
	if len(cleaned) == 0 {
		f.Disable("no required skills configured")
	}
	return f
}

func (f *requiredSkillsFilter) Name() string { return "required_skills" }

func (f *requiredSkillsFilter) Validate() error {
	for _, skill := range f.skills {
		if textnorm.Clean(skill) == "" {
			return fmt.Errorf("skill %q has no letters or digits", skill)
		}
	}
	return nil
}

func (f *requiredSkillsFilter) Apply(_ context.Context, deps Deps, apps *Applications) (*Applications, Step, error) {
	initial := apps.Len()
	excluded := apps.Exclude(func(app *Application) bool {
		for _, skill := range f.skills {
			if !textnorm.ContainsPhrase(app.Resume, skill) {
				return true
			}
		}
		return false
	})
	if len(excluded) > 0 {
		deps.Logger.Info("excluding resumes without required skills",
			zap.Strings("required_skills", f.skills),
			zap.Strings("excluded_applications", excluded),
			zap.Int("applications_left", apps.Len()),
		)
	}
	return apps, Step{Initial: initial, Dropped: len(excluded), Left: apps.Len()}, nil
}

func (f *requiredSkillsFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"skills": strings.Join(f.skills, ",")},
	}
}

type matchScoreFilter struct {
	switchable
	minPercentage float64
	workers       int
}

// NewMatchScore creates the step that scores every application with the
// matcher and drops those below minPercentage (0-100).
func NewMatchScore(minPercentage float64, workers int) Filter {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &matchScoreFilter{minPercentage: minPercentage, workers: workers}
}

func (f *matchScoreFilter) Name() string { return "match_score" }

func (f *matchScoreFilter) Validate() error {
	if f.minPercentage < 0 || f.minPercentage > 100 {
		return fmt.Errorf("minimum match percentage must be in [0,100], got %v", f.minPercentage)
	}
	return nil
}

// Apply keeps applications whose evaluation failed; they carry the error
// and a zero score.
func (f *matchScoreFilter) Apply(ctx context.Context, deps Deps, apps *Applications) (*Applications, Step, error) {
	if deps.Matcher == nil {
		return apps, Step{}, errors.New("matcher is required")
	}

	initial := apps.Len()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for _, app := range apps.Items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			assessment, err := deps.Matcher.Evaluate(gctx, app.Resume, deps.Job)
			if err != nil {
				deps.Logger.Warn("evaluation failed", zap.String("application_id", app.ID), zap.Error(err))
				app.Error = err.Error()
				return nil
			}
			app.Assessment = assessment
			app.Score = assessment.Score
			app.Percentage = assessment.Score * 100
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return apps, Step{}, err
	}

	excluded := apps.Exclude(func(app *Application) bool {
		return app.Error == "" && app.Percentage < f.minPercentage
	})
	if len(excluded) > 0 {
		deps.Logger.Info("excluding applications below the minimum match percentage",
			zap.Float64("min_percentage", f.minPercentage),
			zap.Strings("excluded_applications", excluded),
			zap.Int("applications_left", apps.Len()),
		)
	}
	return apps, Step{Initial: initial, Dropped: len(excluded), Left: apps.Len()}, nil
}

func (f *matchScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{
			"min_percentage": strconv.FormatFloat(f.minPercentage, 'f', -1, 64),
			"workers":        strconv.Itoa(f.workers),
		},
	}
}
