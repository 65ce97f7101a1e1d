package travis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/jonwraymond/badges/cache"
	"github.com/jonwraymond/badges/fetch"
	"github.com/jonwraymond/badges/jobs"
)

// Travis API endpoints.
const (
	ComEndpoint = "https://api.travis-ci.com"
	OrgEndpoint = "https://api.travis-ci.org"
)

// DefaultBranch is used when no branch is given.
const DefaultBranch = "master"

// ErrNoBuild is returned when a branch has never been built.
var ErrNoBuild = errors.New("travis: branch has no builds")

// Client talks to one Travis endpoint.
type Client struct {
	fetch    *fetch.Client
	endpoint string
	token    string
}

// NewClient creates a client for endpoint. An empty endpoint selects
// ComEndpoint. token is optional and only needed for private repositories.
func NewClient(fc *fetch.Client, endpoint, token string) *Client {
	if endpoint == "" {
		endpoint = ComEndpoint
	}
	return &Client{fetch: fc, endpoint: strings.TrimRight(endpoint, "/"), token: token}
}

// Endpoint returns the API base URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Build is a Travis build with its jobs.
type Build struct {
	ID     int64
	Number string
	State  string
	Branch string
	Jobs   []Job
}

// Job is one job of a build.
type Job struct {
	ID     int64     `json:"id"`
	Number string    `json:"number"`
	State  string    `json:"state"`
	Config JobConfig `json:"config"`
}

// JobConfig is the subset of the job configuration used for filtering.
type JobConfig struct {
	Env string `json:"env"`
}

// UnmarshalJSON accepts env as a string or a list of assignments.
func (c *JobConfig) UnmarshalJSON(b []byte) error {
	var raw struct {
		Env json.RawMessage `json:"env"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.Env = ""
	if len(raw.Env) == 0 || string(raw.Env) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw.Env, &c.Env); err == nil {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw.Env, &list); err != nil {
		return fmt.Errorf("travis: unsupported env: %s", raw.Env)
	}
	c.Env = strings.Join(list, " ")
	return nil
}

// Finished reports whether the state is final.
func Finished(state string) bool {
	switch state {
	case "passed", "failed", "errored", "canceled":
		return true
	default:
		return false
	}
}

// StatusOf maps a Travis state to a job status. Canceled and unfinished
// states are unknown.
func StatusOf(state string) jobs.Status {
	switch state {
	case "passed":
		return jobs.StatusPassed
	case "failed":
		return jobs.StatusFailed
	case "errored":
		return jobs.StatusError
	default:
		return jobs.StatusUnknown
	}
}

// JobList converts the build's jobs. The job name is its env string so
// filters can select on it.
func (b *Build) JobList() []jobs.Job {
	out := make([]jobs.Job, 0, len(b.Jobs))
	for _, j := range b.Jobs {
		out = append(out, jobs.Job{
			Name:   j.Config.Env,
			Env:    j.Config.Env,
			Status: StatusOf(j.State),
		})
	}
	return out
}

type branchResponse struct {
	Name      string `json:"name"`
	LastBuild *struct {
		ID     int64  `json:"id"`
		Number string `json:"number"`
		State  string `json:"state"`
	} `json:"last_build"`
}

type jobsResponse struct {
	Jobs []Job `json:"jobs"`
}

// LatestBranchBuild returns the most recent build of branch with its jobs.
// An empty branch selects DefaultBranch.
func (c *Client) LatestBranchBuild(ctx context.Context, user, repo, branch string) (*Build, error) {
	if branch == "" {
		branch = DefaultBranch
	}
	slug := url.PathEscape(user + "/" + repo)

	br, err := fetch.JSON(ctx, c.fetch, c.request("/repo/"+slug+"/branch/"+url.PathEscape(branch), nil),
		func(branchResponse) time.Duration { return cache.OneMinute })
	if err != nil {
		return nil, err
	}
	if br.LastBuild == nil {
		return nil, fmt.Errorf("%w: %s/%s@%s", ErrNoBuild, user, repo, branch)
	}

	jr, err := fetch.JSON(ctx, c.fetch,
		c.request(fmt.Sprintf("/build/%d/jobs", br.LastBuild.ID), url.Values{"include": {"job.config"}}),
		jobsTTL)
	if err != nil {
		return nil, err
	}
	return &Build{
		ID:     br.LastBuild.ID,
		Number: br.LastBuild.Number,
		State:  br.LastBuild.State,
		Branch: branch,
		Jobs:   jr.Jobs,
	}, nil
}

// jobsTTL keeps job listings only once every job has finished.
func jobsTTL(r jobsResponse) time.Duration {
	if len(r.Jobs) == 0 || slices.ContainsFunc(r.Jobs, func(j Job) bool { return !Finished(j.State) }) {
		return 0
	}
	return cache.OneHour
}

func (c *Client) request(path string, query url.Values) fetch.Request {
	h := http.Header{"Travis-API-Version": {"3"}}
	if c.token != "" {
		h.Set("Authorization", "token "+c.token)
	}
	return fetch.Request{
		URL:    c.endpoint + path,
		Query:  query,
		Header: h,
		Gzip:   true,
	}
}
