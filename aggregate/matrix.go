package aggregate

import (
	"slices"
	"strconv"
	"strings"

	"github.com/jonwraymond/badges/jobs"
)

// Matrix maps browser ID to version to the record for that cell.
type Matrix map[string]map[string]jobs.Record

// Group folds records into a Matrix. A later record for the same browser
// and version replaces an earlier one.
func Group(records []jobs.Record) Matrix {
	m := make(Matrix)
	for _, r := range records {
		versions, ok := m[r.Browser]
		if !ok {
			versions = make(map[string]jobs.Record)
			m[r.Browser] = versions
		}
		versions[r.Version] = r
	}
	return m
}

// Len returns the number of cells.
func (m Matrix) Len() int {
	n := 0
	for _, versions := range m {
		n += len(versions)
	}
	return n
}

// Get returns the record for a cell.
func (m Matrix) Get(browser, version string) (jobs.Record, bool) {
	r, ok := m[browser][version]
	return r, ok
}

// Filter returns a new matrix holding the cells for which keep is true.
// Browsers left without versions are dropped.
func (m Matrix) Filter(keep func(jobs.Record) bool) Matrix {
	out := make(Matrix, len(m))
	for browser, versions := range m {
		for version, r := range versions {
			if !keep(r) {
				continue
			}
			if out[browser] == nil {
				out[browser] = make(map[string]jobs.Record)
			}
			out[browser][version] = r
		}
	}
	return out
}

// Records returns every cell, ordered as Rows(SortByVersion) would show them.
func (m Matrix) Records() []jobs.Record {
	var out []jobs.Record
	for _, row := range m.Rows(SortByVersion) {
		out = append(out, row.Cells...)
	}
	return out
}

// SortBy selects the cell order within a row.
type SortBy string

const (
	// SortByVersion orders versions ascending, numerically where possible.
	SortByVersion SortBy = "version"
	// SortByStatus puts failing cells first, then orders by version.
	SortByStatus SortBy = "status"
)

// ParseSortBy returns the SortBy named by s, defaulting to SortByVersion.
func ParseSortBy(s string) (SortBy, bool) {
	switch SortBy(strings.ToLower(s)) {
	case "", SortByVersion:
		return SortByVersion, true
	case SortByStatus:
		return SortByStatus, true
	default:
		return SortByVersion, false
	}
}

// Row is one browser's cells in display order.
type Row struct {
	Browser jobs.Browser
	Cells   []jobs.Record
}

// Rows returns the matrix as ordered rows: canonical browsers first in
// jobs.Browsers order, then any others alphabetically.
func (m Matrix) Rows(sortBy SortBy) []Row {
	browsers := make([]string, 0, len(m))
	for b, versions := range m {
		if len(versions) > 0 {
			browsers = append(browsers, b)
		}
	}
	slices.SortFunc(browsers, func(a, b string) int {
		if ra, rb := jobs.BrowserRank(a), jobs.BrowserRank(b); ra != rb {
			return ra - rb
		}
		return strings.Compare(a, b)
	})

	rows := make([]Row, 0, len(browsers))
	for _, id := range browsers {
		browser, ok := jobs.LookupBrowser(id)
		if !ok {
			browser = jobs.Browser{ID: id, Name: id}
		}
		cells := make([]jobs.Record, 0, len(m[id]))
		for _, r := range m[id] {
			cells = append(cells, r)
		}
		slices.SortFunc(cells, func(a, b jobs.Record) int {
			if sortBy == SortByStatus {
				if sa, sb := severity(a.Status), severity(b.Status); sa != sb {
					return sb - sa
				}
			}
			return CompareVersions(a.Version, b.Version)
		})
		rows = append(rows, Row{Browser: browser, Cells: cells})
	}
	return rows
}

// CompareVersions compares dotted versions segment by segment, numerically
// when both segments are numbers and lexically otherwise.
func CompareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		ai, aerr := strconv.Atoi(as[i])
		bi, berr := strconv.Atoi(bs[i])
		switch {
		case aerr == nil && berr == nil:
			if ai != bi {
				if ai < bi {
					return -1
				}
				return 1
			}
		case aerr == nil:
			return -1
		case berr == nil:
			return 1
		default:
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
		}
	}
	return len(as) - len(bs)
}
