// Package dataset loads labeled resume/job pairs used to train the match
// classifier.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Example is one labeled pair. Label is 1 for a match and 0 otherwise.
type Example struct {
	Resume string
	Job    string
	Label  int
}

// Columns names the CSV header fields holding each part of an Example.
type Columns struct {
	Resume string `mapstructure:"resume"`
	Job    string `mapstructure:"job"`
	Label  string `mapstructure:"label"`
}

// DefaultColumns matches the public resume/job matching datasets.
func DefaultColumns() Columns {
	return Columns{
		Resume: "Resume",
		Job:    "Job Description",
		Label:  "Best Match",
	}
}

func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	if strings.TrimSpace(c.Resume) == "" {
		c.Resume = d.Resume
	}
	if strings.TrimSpace(c.Job) == "" {
		c.Job = d.Job
	}
	if strings.TrimSpace(c.Label) == "" {
		c.Label = d.Label
	}
	return c
}

// ErrDataset is matched by every DataError.
var ErrDataset = errors.New("invalid dataset")

// DataError reports a missing or malformed training dataset.
type DataError struct {
	Path   string
	Row    int
	Column string
	Err    error
}

func (e *DataError) Error() string {
	var b strings.Builder
	b.WriteString("dataset")
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, " row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *DataError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDataset) match.
func (e *DataError) Is(target error) bool { return target == ErrDataset }

// LoadCSV reads a CSV file with a header row.
func LoadCSV(path string, cols Columns) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataError{Path: path, Err: err}
	}
	defer f.Close()

	examples, err := ReadCSV(f, cols)
	if err != nil {
		var dataErr *DataError
		if errors.As(err, &dataErr) {
			dataErr.Path = path
		}
		return nil, err
	}
	return examples, nil
}

// ReadCSV reads examples from r. Rows are numbered from 1 after the header.
func ReadCSV(r io.Reader, cols Columns) ([]Example, error) {
	cols = cols.withDefaults()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &DataError{Err: errors.New("file is empty")}
	}
	if err != nil {
		return nil, &DataError{Err: fmt.Errorf("read header: %w", err)}
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	positions := make(map[string]int, 3)
	for _, name := range []string{cols.Resume, cols.Job, cols.Label} {
		pos, ok := index[name]
		if !ok {
			return nil, &DataError{Column: name, Err: errors.New("required column is missing")}
		}
		positions[name] = pos
	}

	examples := make([]Example, 0)
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &DataError{Row: row, Err: err}
		}

		raw := map[string]any{
			"resume": cell(record, positions[cols.Resume]),
			"job":    cell(record, positions[cols.Job]),
			"label":  strings.TrimSpace(cell(record, positions[cols.Label])),
		}

		ex, err := decodeExample(raw)
		if err != nil {
			return nil, &DataError{Row: row, Column: cols.Label, Err: err}
		}
		examples = append(examples, ex)
	}

	if len(examples) == 0 {
		return nil, &DataError{Err: errors.New("no rows")}
	}
	return examples, nil
}

type record struct {
	Resume string `mapstructure:"resume"`
	Job    string `mapstructure:"job"`
	Label  bool   `mapstructure:"label"`
}

// decodeExample accepts 1/0, 1.0/0.0, true/false and t/f labels.
func decodeExample(raw map[string]any) (Example, error) {
	if raw["label"] == "" {
		return Example{}, errors.New("label is empty")
	}

	var rec record
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       numericLabelHook,
		WeaklyTypedInput: true,
		Result:           &rec,
	})
	if err != nil {
		return Example{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Example{}, fmt.Errorf("label %q is not binary: %w", raw["label"], err)
	}

	ex := Example{Resume: rec.Resume, Job: rec.Job}
	if rec.Label {
		ex.Label = 1
	}
	return ex, nil
}

// numericLabelHook maps "1.0" and "0.0" style labels to booleans.
func numericLabelHook(from, to reflect.Kind, data any) (any, error) {
	if from != reflect.String || to != reflect.Bool {
		return data, nil
	}
	f, err := strconv.ParseFloat(data.(string), 64)
	if err != nil {
		return data, nil
	}
	switch f {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return data, nil
	}
}

func cell(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

// Balance reports the number of negative and positive examples.
func Balance(examples []Example) (negatives, positives int) {
	for _, ex := range examples {
		if ex.Label == 1 {
			positives++
		} else {
			negatives++
		}
	}
	return negatives, positives
}
