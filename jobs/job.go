package jobs

import (
	"slices"
	"strings"
)

// Job is a raw job as reported by an upstream service.
type Job struct {
	Name    string
	Tags    []string
	Env     string
	Browser string
	Version string
	Status  Status
}

// Outcome implements Outcomer.
func (j Job) Outcome() Status { return j.Status }

// Record is a normalized job: one status for one browser version.
type Record struct {
	Browser string   `json:"browser"`
	Version string   `json:"version"`
	Status  Status   `json:"status"`
	Name    string   `json:"name,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// Outcome implements Outcomer.
func (r Record) Outcome() Status { return r.Status }

// Filter selects jobs. Empty fields match everything.
type Filter struct {
	Name string // substring of Job.Name
	Tag  string // exact member of Job.Tags
	Env  string // substring of Job.Env
}

// IsZero reports whether the filter matches every job.
func (f Filter) IsZero() bool {
	return f.Name == "" && f.Tag == "" && f.Env == ""
}

// Match reports whether j passes every set criterion.
func (f Filter) Match(j Job) bool {
	if f.Name != "" && !strings.Contains(j.Name, f.Name) {
		return false
	}
	if f.Tag != "" && !slices.Contains(j.Tags, f.Tag) {
		return false
	}
	if f.Env != "" && !strings.Contains(j.Env, f.Env) {
		return false
	}
	return true
}

// FilterJobs returns the jobs that match f, in input order. No match yields
// an empty slice.
func FilterJobs(jobs []Job, f Filter) []Job {
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if f.Match(j) {
			out = append(out, j)
		}
	}
	return out
}

// Normalize converts jobs to records, mapping browser names to canonical IDs
// and tidying versions. Jobs for unknown browsers or without a version are
// dropped. Input order is preserved.
func Normalize(jobs []Job) []Record {
	out := make([]Record, 0, len(jobs))
	for _, j := range jobs {
		browser, ok := CanonicalBrowser(j.Browser)
		if !ok {
			continue
		}
		version := NormalizeVersion(j.Version)
		if version == "" {
			continue
		}
		out = append(out, Record{
			Browser: browser,
			Version: version,
			Status:  j.Status,
			Name:    j.Name,
			Tags:    slices.Clone(j.Tags),
		})
	}
	return out
}

// NormalizeVersion trims whitespace and drops trailing ".0" components,
// so "70.0" and "70" name the same version.
func NormalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	for strings.HasSuffix(v, ".0") {
		v = strings.TrimSuffix(v, ".0")
	}
	return v
}
