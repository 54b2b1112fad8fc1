package classifier

import (
	"errors"
	"fmt"
)

// ErrNoModel is returned by Save when nothing has been trained or loaded.
var ErrNoModel = errors.New("no trained model")

// DimensionMismatchError reports a feature vector whose width differs from
// the one the model was trained on.
type DimensionMismatchError struct {
	Expected int
	Got      int
	// Err names the malformed block, when one was found.
	Err error
}

func (e *DimensionMismatchError) Error() string {
	msg := fmt.Sprintf("feature dimension mismatch: model expects %d values, got %d", e.Expected, e.Got)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DimensionMismatchError) Unwrap() error { return e.Err }

// PersistenceError wraps a failure to save or load a model artifact.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s model %q: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
