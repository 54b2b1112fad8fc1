package ranking

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spigell/cv-matcher/internal/ai"
)

// Application is one candidate's resume submitted for a job.
type Application struct {
	ID     string `json:"id"`
	Resume string `json:"-"`
	// Score is the matcher score in [0,1]; Percentage is Score * 100.
	Score      float64           `json:"score"`
	Percentage float64           `json:"match_percentage"`
	Assessment *ai.FitAssessment `json:"assessment,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Applications is a mutable list filtered in place by each step.
type Applications struct {
	Items []*Application
}

func (a *Applications) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Items)
}

// IDs returns the application ids in list order.
func (a *Applications) IDs() []string {
	if a == nil {
		return nil
	}
	ids := make([]string, 0, len(a.Items))
	for _, app := range a.Items {
		ids = append(ids, app.ID)
	}
	return ids
}

// Exclude removes every application matching drop and returns their ids.
func (a *Applications) Exclude(drop func(*Application) bool) []string {
	kept := a.Items[:0]
	var excluded []string
	for _, app := range a.Items {
		if drop(app) {
			excluded = append(excluded, app.ID)
			continue
		}
		kept = append(kept, app)
	}
	clear(a.Items[len(kept):])
	a.Items = kept
	return excluded
}

// Sort orders applications by match percentage, highest first, then by id.
func (a *Applications) Sort() {
	slices.SortStableFunc(a.Items, func(x, y *Application) int {
		if c := cmp.Compare(y.Percentage, x.Percentage); c != 0 {
			return c
		}
		return strings.Compare(x.ID, y.ID)
	})
}

// LoadDir reads every regular *.txt and *.md file in dir as a resume. The
// file name without extension becomes the application id.
func LoadDir(dir string) (*Applications, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read resumes directory: %w", err)
	}

	apps := &Applications{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read resume %s: %w", entry.Name(), err)
		}
		apps.Items = append(apps.Items, &Application{
			ID:     strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Resume: string(data),
		})
	}
	return apps, nil
}
