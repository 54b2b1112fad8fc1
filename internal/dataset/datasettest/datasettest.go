// Package datasettest provides labeled resume/job pairs for tests.
package datasettest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spigell/cv-matcher/internal/dataset"
)

var profiles = []struct {
	resume string
	job    string
}{
	{
		resume: "Senior Python developer building Django and Flask services, strong SQL and PostgreSQL database skills, Docker deployments.",
		job:    "We are hiring a Python engineer to build Django APIs on a SQL database and ship them with Docker.",
	},
	{
		resume: "Java engineer with Spring experience, Kubernetes operations and Linux administration on AWS cloud.",
		job:    "Backend Java developer needed for microservices on AWS cloud with Kubernetes and Linux.",
	},
	{
		resume: "Frontend developer: React, JavaScript, TypeScript, HTML and CSS, git workflows and agile scrum teams.",
		job:    "Looking for a React frontend engineer fluent in JavaScript, TypeScript, HTML and CSS, working in agile scrum.",
	},
	{
		resume: "Accountant with ten years in finance, accounting audits, Excel modelling and PowerPoint reporting.",
		job:    "Finance team seeks an accounting specialist with advanced Excel and PowerPoint reporting skills.",
	},
	{
		resume: "Marketing and sales lead focused on customer service, negotiation and communication with key accounts.",
		job:    "Sales manager role: negotiation, customer service and marketing campaigns with strong communication.",
	},
	{
		resume: "Recruiter in HR handling recruitment pipelines, leadership coaching and teamwork programs.",
		job:    "HR partner for recruitment, leadership development and teamwork initiatives.",
	},
}

// Examples returns n labeled pairs cycling through fixed profiles. Even rows
// pair a resume with its own job (label 1); odd rows pair it with an
// unrelated job (label 0).
func Examples(n int) []dataset.Example {
	out := make([]dataset.Example, 0, n)
	for i := range n {
		p := profiles[(i/2)%len(profiles)]
		if i%2 == 0 {
			out = append(out, dataset.Example{Resume: p.resume, Job: p.job, Label: 1})
			continue
		}
		other := profiles[((i/2)+len(profiles)/2)%len(profiles)]
		out = append(out, dataset.Example{Resume: p.resume, Job: other.job, Label: 0})
	}
	return out
}

// WriteCSV writes examples under the default column names into dir and
// returns the file path.
func WriteCSV(t testing.TB, dir string, examples []dataset.Example) string {
	t.Helper()

	path := filepath.Join(dir, "pairs.csv")
	f, err := os.Create(path)
	require.NoError(t, err, "create dataset")
	defer f.Close()

	cols := dataset.DefaultColumns()
	w := csv.NewWriter(f)
	records := [][]string{{cols.Resume, cols.Job, cols.Label}}
	for _, ex := range examples {
		records = append(records, []string{ex.Resume, ex.Job, strconv.Itoa(ex.Label)})
	}
	require.NoError(t, w.WriteAll(records), "write dataset")
	return path
}

// Pair returns the i-th profile's resume and job text.
func Pair(i int) (resume, job string) {
	p := profiles[i%len(profiles)]
	return p.resume, p.job
}

// Mismatch returns the i-th profile's resume with an unrelated job.
func Mismatch(i int) (resume, job string) {
	p := profiles[i%len(profiles)]
	other := profiles[(i+len(profiles)/2)%len(profiles)]
	return p.resume, other.job
}

