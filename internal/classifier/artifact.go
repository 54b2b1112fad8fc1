package classifier

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/spigell/cv-matcher/internal/features"
	"github.com/spigell/cv-matcher/internal/forest"
	"github.com/spigell/cv-matcher/internal/textnorm"
)

const artifactVersion = 1

// artifact is the on-disk form of a trained model: gzip-compressed JSON.
type artifact struct {
	Version    int                      `json:"version"`
	ModelID    string                   `json:"model_id"`
	CreatedAt  time.Time                `json:"created_at"`
	Skills     []string                 `json:"skills"`
	Vocabulary features.VocabularyState `json:"vocabulary"`
	Scaler     *Scaler                  `json:"scaler"`
	Forest     *forest.Forest           `json:"forest"`
	Metrics    Metrics                  `json:"metrics"`
}

func newArtifact(m *model) artifact {
	return artifact{
		Version:    artifactVersion,
		ModelID:    m.id,
		CreatedAt:  m.createdAt,
		Skills:     m.normalizer.Skills(),
		Vocabulary: m.vocab.State(),
		Scaler:     m.scaler,
		Forest:     m.forest,
		Metrics:    m.metrics,
	}
}

// model rebuilds the in-memory bundle, rejecting artifacts whose parts do not
// agree on the feature width.
func (a artifact) model() (*model, error) {
	if a.Version != artifactVersion {
		return nil, fmt.Errorf("unsupported artifact version %d", a.Version)
	}
	if a.ModelID == "" {
		return nil, errors.New("artifact has no model id")
	}
	if len(a.Skills) == 0 {
		return nil, errors.New("artifact has no skill vocabulary")
	}
	if a.Scaler == nil {
		return nil, errors.New("artifact has no scaler")
	}

	vocab, err := features.FromState(a.Vocabulary)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: %w", err)
	}
	if err := a.Scaler.validate(); err != nil {
		return nil, fmt.Errorf("scaler: %w", err)
	}
	if err := a.Forest.Validate(); err != nil {
		return nil, fmt.Errorf("forest: %w", err)
	}

	width := features.Width(vocab.Size())
	if a.Scaler.Width() != width {
		return nil, &DimensionMismatchError{Expected: width, Got: a.Scaler.Width()}
	}
	if a.Forest.NumFeatures != width {
		return nil, &DimensionMismatchError{Expected: width, Got: a.Forest.NumFeatures}
	}

	normalizer, err := textnorm.New(textnorm.WithSkills(a.Skills))
	if err != nil {
		return nil, err
	}

	return &model{
		id:         a.ModelID,
		createdAt:  a.CreatedAt,
		normalizer: normalizer,
		vocab:      vocab,
		scaler:     a.Scaler,
		forest:     a.Forest,
		metrics:    a.Metrics,
	}, nil
}

// writeArtifact writes to a temporary file next to path and renames it into
// place, so readers see either the old artifact or the complete new one.
func writeArtifact(path string, a artifact) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := gzip.NewWriter(tmp)
	if err := json.NewEncoder(zw).Encode(a); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func readArtifact(path string) (*model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	defer zr.Close()

	var a artifact
	if err := json.NewDecoder(zr).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return a.model()
}
