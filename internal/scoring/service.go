// Package scoring exposes the trained match model to the rest of the
// application. Scoring never fails: errors degrade to the default score.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/ai"
	"github.com/spigell/cv-matcher/internal/classifier"
	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/textnorm"
)

// DefaultMinimumFitScore is the score at which Evaluate reports a fit.
const DefaultMinimumFitScore = 0.6

// Config controls a Service.
type Config struct {
	// ModelPath is loaded on start when the file exists.
	ModelPath       string             `mapstructure:"model-path"`
	MinimumFitScore float64            `mapstructure:"minimum-fit-score"`
	Classifier      classifier.Options `mapstructure:"classifier"`
}

// DefaultConfig returns a config without a model path.
func DefaultConfig() Config {
	return Config{
		MinimumFitScore: DefaultMinimumFitScore,
		Classifier:      classifier.DefaultOptions(),
	}
}

// Service scores resume/job pairs with the currently installed model.
type Service struct {
	cfg      Config
	log      *zap.Logger
	current  atomic.Pointer[classifier.Classifier]
	metrics  *serviceMetrics
	registry *prometheus.Registry
}

var _ ai.Matcher = (*Service)(nil)

// New builds a Service. A configured model that does not exist yet is not an
// error: the service starts without a model and scores DefaultScore until
// Reload succeeds. A model that exists but cannot be loaded is an error.
func New(cfg Config, log *zap.Logger) (*Service, error) {
	if cfg.MinimumFitScore < 0 || cfg.MinimumFitScore > 1 {
		return nil, fmt.Errorf("minimum fit score must be in [0,1], got %v", cfg.MinimumFitScore)
	}
	if log == nil {
		log = zap.NewNop()
	}

	empty, err := classifier.New(cfg.Classifier, log)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	s := &Service{
		cfg:        cfg,
		log:        logger.WithCommonFields(log, ai.ProviderModel, ""),
		metrics:    newServiceMetrics(reg),
		registry:   reg,
	}
	s.current.Store(empty)

	if path := strings.TrimSpace(cfg.ModelPath); path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			s.log.Warn("model file not found, scoring with the default score", zap.String("path", path))
			return s, nil
		}
		if err := s.Reload(path); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Registry exposes the service metrics.
func (s *Service) Registry() *prometheus.Registry {
	return s.registry
}

// ModelID returns the id of the installed model or "".
func (s *Service) ModelID() string {
	return s.current.Load().ModelID()
}

// Loaded reports whether a trained model is installed.
func (s *Service) Loaded() bool {
	return s.current.Load().Loaded()
}

// Reload loads path into a new classifier and swaps it in on success.
// Calls in flight keep using the model they started with.
func (s *Service) Reload(path string) error {
	next, err := classifier.New(s.cfg.Classifier, s.log)
	if err != nil {
		s.metrics.reloads.WithLabelValues("error").Inc()
		return err
	}
	if err := next.Load(path); err != nil {
		s.metrics.reloads.WithLabelValues("error").Inc()
		s.log.Error("model reload failed, keeping the current model",
			zap.String("path", path),
			zap.String(logger.FieldModelID, s.ModelID()),
			zap.Error(err),
		)
		return err
	}

	s.current.Store(next)
	s.metrics.reloads.WithLabelValues("ok").Inc()
	return nil
}

// ScoreMatch returns the match probability in [0,1]. It never fails.
func (s *Service) ScoreMatch(ctx context.Context, resume, job string) float64 {
	return s.Score(ctx, resume, job).Score
}

// Score returns the match probability tagged with how it was produced.
func (s *Service) Score(ctx context.Context, resume, job string) (res classifier.Result) {
	started := time.Now()
	model := s.current.Load()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("match scoring panicked",
				zap.String(logger.FieldModelID, model.ModelID()),
				zap.Any("panic", r),
			)
			res = degraded()
		}
		s.metrics.predictions.WithLabelValues(string(res.Outcome)).Inc()
		s.metrics.latency.Observe(time.Since(started).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		s.log.Warn("match scoring cancelled", zap.Error(err))
		return degraded()
	}

	res, err := model.Predict(resume, job)
	if err != nil {
		s.log.Warn("match scoring failed, using the default score",
			zap.String(logger.FieldModelID, model.ModelID()),
			zap.Error(err),
		)
		return degraded()
	}
	return res
}

// Evaluate implements ai.Matcher on top of Score. The reason lists the
// skills both texts share under the installed model's skill vocabulary.
func (s *Service) Evaluate(ctx context.Context, resume, job string) (*ai.FitAssessment, error) {
	model := s.current.Load()
	res := s.Score(ctx, resume, job)

	common := textnorm.Intersect(model.ExtractSkills(job), model.ExtractSkills(resume))
	reason := "no common skills"
	if len(common) > 0 {
		reason = "common skills: " + strings.Join(common, ", ")
	}

	return &ai.FitAssessment{
		Fit:     res.Score >= s.cfg.MinimumFitScore,
		Score:   res.Score,
		Reason:  reason,
		Message: string(res.Outcome),
	}, nil
}

func degraded() classifier.Result {
	return classifier.Result{Score: classifier.DefaultScore, Outcome: classifier.OutcomeDegraded}
}
