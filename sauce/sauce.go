package sauce

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/badges/cache"
	"github.com/jonwraymond/badges/fetch"
	"github.com/jonwraymond/badges/jobs"
)

// DefaultEndpoint is the public Sauce Labs API.
const DefaultEndpoint = "https://saucelabs.com"

// pageSize is how many jobs one listing requests.
const pageSize = 500

// ErrNoUser is returned when no Sauce user is configured.
var ErrNoUser = errors.New("sauce: user is required")

// Client lists jobs for one Sauce user.
type Client struct {
	fetch     *fetch.Client
	endpoint  string
	user      string
	accessKey string
}

// NewClient creates a client. An empty endpoint selects DefaultEndpoint.
func NewClient(fc *fetch.Client, endpoint, user, accessKey string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		fetch:     fc,
		endpoint:  strings.TrimRight(endpoint, "/"),
		user:      user,
		accessKey: accessKey,
	}
}

// User returns the Sauce user.
func (c *Client) User() string { return c.user }

// Job is one Sauce job as listed with full=true.
type Job struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Build          string   `json:"build"`
	Tags           []string `json:"tags"`
	Browser        string   `json:"browser"`
	BrowserVersion string   `json:"browser_short_version"`
	Passed         *bool    `json:"passed"`
	Error          *string  `json:"error"`
	Status         string   `json:"status"`
	StartTime      int64    `json:"start_time"`
}

// InProgress reports whether the job can still change.
func (j Job) InProgress() bool {
	switch j.Status {
	case "new", "queued", "in progress":
		return true
	default:
		return false
	}
}

// Outcome maps the job result to a status. An error message wins over the
// passed flag.
func (j Job) Outcome() jobs.Status {
	switch {
	case j.Error != nil && *j.Error != "":
		return jobs.StatusError
	case j.Passed == nil:
		return jobs.StatusUnknown
	case *j.Passed:
		return jobs.StatusPassed
	default:
		return jobs.StatusFailed
	}
}

// Query narrows a job listing. Zero fields are omitted.
type Query struct {
	From time.Time
	To   time.Time
	Skip int
}

func (q Query) values() url.Values {
	v := url.Values{
		"full":  {"true"},
		"limit": {strconv.Itoa(pageSize)},
	}
	if !q.From.IsZero() {
		v.Set("from", strconv.FormatInt(q.From.Unix(), 10))
	}
	if !q.To.IsZero() {
		v.Set("to", strconv.FormatInt(q.To.Unix(), 10))
	}
	if q.Skip > 0 {
		v.Set("skip", strconv.Itoa(q.Skip))
	}
	return v
}

// Jobs lists recent jobs, newest first.
func (c *Client) Jobs(ctx context.Context, q Query) ([]Job, error) {
	if c.user == "" {
		return nil, ErrNoUser
	}
	h := http.Header{}
	if c.accessKey != "" {
		h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.user+":"+c.accessKey)))
	}
	return fetch.JSON(ctx, c.fetch, fetch.Request{
		URL:    c.endpoint + "/rest/v1/" + url.PathEscape(c.user) + "/jobs",
		Query:  q.values(),
		Header: h,
		Gzip:   true,
	}, listingTTL)
}

// listingTTL keeps a listing for an hour unless a job is still running.
func listingTTL(list []Job) time.Duration {
	if slices.ContainsFunc(list, Job.InProgress) {
		return 0
	}
	return cache.OneHour
}

// BuildJobs returns the jobs of build. An empty build selects the build of
// the most recent job.
func (c *Client) BuildJobs(ctx context.Context, build string, q Query) ([]Job, error) {
	list, err := c.Jobs(ctx, q)
	if err != nil {
		return nil, err
	}
	if build == "" {
		for _, j := range list {
			if j.Build != "" {
				build = j.Build
				break
			}
		}
		if build == "" {
			return []Job{}, nil
		}
	}
	return selectJobs(list, func(j Job) bool { return j.Build == build }), nil
}

// TravisBuildJobs returns the jobs reported for a Travis build number.
// Sauce builds named after a Travis job number ("17.2") count as part of
// build "17".
func (c *Client) TravisBuildJobs(ctx context.Context, number string) ([]Job, error) {
	if number == "" {
		return []Job{}, nil
	}
	list, err := c.Jobs(ctx, Query{})
	if err != nil {
		return nil, err
	}
	return selectJobs(list, func(j Job) bool {
		return j.Build == number || strings.HasPrefix(j.Build, number+".")
	}), nil
}

// Convert turns Sauce jobs into generic jobs.
func Convert(list []Job) []jobs.Job {
	out := make([]jobs.Job, 0, len(list))
	for _, j := range list {
		out = append(out, jobs.Job{
			Name:    j.Name,
			Tags:    j.Tags,
			Browser: j.Browser,
			Version: j.BrowserVersion,
			Status:  j.Outcome(),
		})
	}
	return out
}

func selectJobs(list []Job, keep func(Job) bool) []Job {
	out := make([]Job, 0, len(list))
	for _, j := range list {
		if keep(j) {
			out = append(out, j)
		}
	}
	return out
}
