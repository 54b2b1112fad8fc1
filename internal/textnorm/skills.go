package textnorm

import "errors"

// ErrNoSkills is returned when a custom skill list has no usable labels.
var ErrNoSkills = errors.New("skill vocabulary has no usable labels")

// DefaultSkills is the built-in skill vocabulary. Order matters: extracted
// skill sets follow it.
var DefaultSkills = []string{
	"python", "java", "javascript", "typescript", "golang", "sql",
	"machine learning", "data analysis", "project management",
	"communication", "leadership", "teamwork", "problem solving",
	"aws", "azure", "cloud", "devops", "agile", "scrum", "git",
	"react", "angular", "vue", "django", "flask", "express", "node",
	"php", "html", "css", "software development", "database",
	"docker", "kubernetes", "linux", "windows",
	"excel", "powerpoint", "word", "writing", "editing",
	"marketing", "sales", "customer service", "finance", "accounting",
	"hr", "recruitment", "negotiation", "research",
}

// CanonicalSkills cleans and dedupes a skill list, keeping first occurrences.
// Labels that clean to nothing are dropped.
func CanonicalSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, skill := range skills {
		label := Clean(skill)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

// Intersect returns the labels present in both sets, in the order of a.
func Intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	index := make(map[string]struct{}, len(b))
	for _, s := range b {
		index[s] = struct{}{}
	}

	out := make([]string, 0)
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		if _, ok := index[s]; !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
