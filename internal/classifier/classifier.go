// Package classifier turns a resume/job text pair into a match probability
// and trains, saves and loads the model behind it.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/cv-matcher/internal/dataset"
	"github.com/spigell/cv-matcher/internal/features"
	"github.com/spigell/cv-matcher/internal/forest"
	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/textnorm"
)

// DefaultScore is returned when no model is available.
const DefaultScore = 0.5

// Outcome tells how a Result score was produced.
type Outcome string

const (
	OutcomeScored   Outcome = "scored"
	OutcomeNoModel  Outcome = "no_model"
	OutcomeDegraded Outcome = "degraded"
)

// Result is a match score in [0,1] tagged with how it was obtained.
type Result struct {
	Score   float64 `json:"score"`
	Outcome Outcome `json:"outcome"`
}

type model struct {
	id         string
	createdAt  time.Time
	normalizer *textnorm.Normalizer
	vocab      *features.Vocabulary
	scaler     *Scaler
	forest     *forest.Forest
	metrics    Metrics
}

// Classifier holds at most one trained model. Train and Load replace it
// atomically on success only; Predict is safe for concurrent use.
type Classifier struct {
	opts       Options
	log        *zap.Logger
	normalizer *textnorm.Normalizer
	current    atomic.Pointer[model]
}

// New validates opts and prepares an empty classifier.
func New(opts Options, log *zap.Logger) (*Classifier, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	var normOpts []textnorm.Option
	if len(opts.Skills) > 0 {
		normOpts = append(normOpts, textnorm.WithSkills(opts.Skills))
	}
	normalizer, err := textnorm.New(normOpts...)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		opts:       opts,
		log:        log,
		normalizer: normalizer,
	}, nil
}

// Loaded reports whether a model is installed.
func (c *Classifier) Loaded() bool {
	return c.current.Load() != nil
}

// ModelID returns the installed model's id, or "" when there is none.
func (c *Classifier) ModelID() string {
	if m := c.current.Load(); m != nil {
		return m.id
	}
	return ""
}

// Metrics returns the evaluation metrics stored with the installed model.
func (c *Classifier) Metrics() (Metrics, bool) {
	if m := c.current.Load(); m != nil {
		return m.metrics, true
	}
	return Metrics{}, false
}

// VocabularySize returns the installed model's vocabulary size.
func (c *Classifier) VocabularySize() int {
	if m := c.current.Load(); m != nil {
		return m.vocab.Size()
	}
	return 0
}

// ExtractSkills returns the skills found in text using the installed
// model's skill vocabulary, or the configured one when no model is loaded.
func (c *Classifier) ExtractSkills(text string) []string {
	if m := c.current.Load(); m != nil {
		return m.normalizer.ExtractSkills(text)
	}
	return c.normalizer.ExtractSkills(text)
}

type preparedPair struct {
	resumeDoc    string
	jobDoc       string
	resumeSkills []string
	jobSkills    []string
}

// Train fits a new model on examples and installs it. It returns the metrics
// measured on the held-out split. On any error the previous model is kept.
func (c *Classifier) Train(ctx context.Context, examples []dataset.Example) (Metrics, error) {
	if len(examples) < 2 {
		return Metrics{}, fmt.Errorf("need at least 2 examples, got %d", len(examples))
	}
	labels := make([]int, len(examples))
	for i, ex := range examples {
		if ex.Label != 0 && ex.Label != 1 {
			return Metrics{}, fmt.Errorf("example %d has label %d, want 0 or 1", i, ex.Label)
		}
		labels[i] = ex.Label
	}

	started := time.Now()
	pairs, err := c.prepare(ctx, examples)
	if err != nil {
		return Metrics{}, fmt.Errorf("normalize texts: %w", err)
	}

	corpus := make([]string, 0, 2*len(pairs))
	for _, p := range pairs {
		corpus = append(corpus, p.resumeDoc)
	}
	for _, p := range pairs {
		corpus = append(corpus, p.jobDoc)
	}
	vocab, err := features.Fit(corpus, c.opts.VocabularySize)
	if err != nil {
		return Metrics{}, fmt.Errorf("fit vocabulary: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Metrics{}, err
	}

	rows := make([][]float64, len(pairs))
	for i, p := range pairs {
		fv, err := features.Combined(p.resumeDoc, p.jobDoc, p.resumeSkills, p.jobSkills, vocab)
		if err != nil {
			return Metrics{}, fmt.Errorf("build features for example %d: %w", i, err)
		}
		if err := fv.Validate(vocab.Size()); err != nil {
			return Metrics{}, fmt.Errorf("build features for example %d: %w", i, err)
		}
		rows[i] = fv.Values()
	}

	trainIdx, testIdx, err := split(len(rows), c.opts.TestFraction, c.opts.Seed)
	if err != nil {
		return Metrics{}, err
	}

	scaler, err := FitScaler(pick(rows, trainIdx))
	if err != nil {
		return Metrics{}, fmt.Errorf("fit scaler: %w", err)
	}
	xTrain, err := transformAll(scaler, pick(rows, trainIdx))
	if err != nil {
		return Metrics{}, err
	}
	xTest, err := transformAll(scaler, pick(rows, testIdx))
	if err != nil {
		return Metrics{}, err
	}
	if err := ctx.Err(); err != nil {
		return Metrics{}, err
	}

	forestOpts := forest.DefaultOptions()
	forestOpts.Trees = c.opts.Trees
	forestOpts.MaxDepth = c.opts.MaxDepth
	forestOpts.MinSamplesSplit = c.opts.MinSamplesSplit
	forestOpts.Seed = c.opts.Seed
	forestOpts.Workers = c.opts.Workers

	fitted, err := forest.Fit(ctx, xTrain, pick(labels, trainIdx), forestOpts)
	if err != nil {
		return Metrics{}, fmt.Errorf("fit forest: %w", err)
	}

	predicted := make([]int, len(xTest))
	for i, row := range xTest {
		if predicted[i], err = fitted.Predict(row); err != nil {
			return Metrics{}, fmt.Errorf("evaluate: %w", err)
		}
	}
	metrics := Evaluate(pick(labels, testIdx), predicted)
	metrics.TrainRows = len(trainIdx)
	if err := ctx.Err(); err != nil {
		return Metrics{}, err
	}

	m := &model{
		id:         uuid.NewString(),
		createdAt:  time.Now().UTC(),
		normalizer: c.normalizer,
		vocab:      vocab,
		scaler:     scaler,
		forest:     fitted,
		metrics:    metrics,
	}
	c.current.Store(m)

	c.log.Info("model trained",
		zap.String(logger.FieldModelID, m.id),
		zap.Int("vocabulary_size", vocab.Size()),
		zap.Int("features", fitted.NumFeatures),
		zap.Int("train_rows", metrics.TrainRows),
		zap.Int("test_rows", metrics.TestRows),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("f1", metrics.F1),
		zap.Duration("elapsed", time.Since(started)),
	)

	return metrics, nil
}

// prepare normalizes texts and extracts skills in parallel, keeping the
// input order.
func (c *Classifier) prepare(ctx context.Context, examples []dataset.Example) ([]preparedPair, error) {
	workers := c.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]preparedPair, len(examples))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, ex := range examples {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = preparedPair{
				resumeDoc:    c.normalizer.Normalize(ex.Resume),
				jobDoc:       c.normalizer.Normalize(ex.Job),
				resumeSkills: c.normalizer.ExtractSkills(ex.Resume),
				jobSkills:    c.normalizer.ExtractSkills(ex.Job),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Predict returns the positive-class probability for the pair. Without a
// model it returns DefaultScore with OutcomeNoModel and no error.
func (c *Classifier) Predict(resume, job string) (Result, error) {
	m := c.current.Load()
	if m == nil {
		return Result{Score: DefaultScore, Outcome: OutcomeNoModel}, nil
	}

	degraded := Result{Score: DefaultScore, Outcome: OutcomeDegraded}

	fv, err := features.Combined(
		m.normalizer.Normalize(resume),
		m.normalizer.Normalize(job),
		m.normalizer.ExtractSkills(resume),
		m.normalizer.ExtractSkills(job),
		m.vocab,
	)
	if err != nil {
		return degraded, err
	}
	if err := checkWidth(fv, m.vocab.Size(), m.forest.NumFeatures); err != nil {
		return degraded, err
	}

	row, err := m.scaler.Transform(fv.Values())
	if err != nil {
		return degraded, err
	}
	p, err := m.forest.PredictProba(row)
	if err != nil {
		if errors.Is(err, forest.ErrFeatureWidth) {
			return degraded, &DimensionMismatchError{Expected: m.forest.NumFeatures, Got: len(row)}
		}
		return degraded, err
	}

	return Result{Score: p, Outcome: OutcomeScored}, nil
}

// Save writes the installed model to path atomically.
func (c *Classifier) Save(path string) error {
	m := c.current.Load()
	if m == nil {
		return &PersistenceError{Op: "save", Path: path, Err: ErrNoModel}
	}
	if err := writeArtifact(path, newArtifact(m)); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}

	c.log.Info("model saved", zap.String(logger.FieldModelID, m.id), zap.String("path", path))
	return nil
}

// Load reads and validates the artifact at path and installs it. A missing,
// corrupt or inconsistent artifact leaves the current model in place.
func (c *Classifier) Load(path string) error {
	m, err := readArtifact(path)
	if err != nil {
		return &PersistenceError{Op: "load", Path: path, Err: err}
	}
	c.current.Store(m)

	c.log.Info("model loaded",
		zap.String(logger.FieldModelID, m.id),
		zap.Time("created_at", m.createdAt),
		zap.Int("vocabulary_size", m.vocab.Size()),
	)
	return nil
}

// checkWidth rejects a vector whose blocks do not match the vocabulary or
// whose total width differs from the forest input.
func checkWidth(fv features.FeatureVector, vocabSize, forestWidth int) error {
	if err := fv.Validate(vocabSize); err != nil {
		return &DimensionMismatchError{Expected: features.Width(vocabSize), Got: fv.Len(), Err: err}
	}
	if fv.Len() != forestWidth {
		return &DimensionMismatchError{Expected: forestWidth, Got: fv.Len()}
	}
	return nil
}

func pick[T any](values []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}

func transformAll(s *Scaler, rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("scale row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}
