package jobs

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MalformedInputError describes an inline version token that was skipped.
type MalformedInputError struct {
	Browser string
	Token   string
	Reason  string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("jobs: malformed %s token %q: %s", e.Browser, e.Token, e.Reason)
}

var versionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// sigils maps the optional leading character of an inline token to a status.
var sigils = map[byte]Status{
	'!': StatusError,
	'-': StatusFailed,
	'+': StatusPassed,
}

// ParseInline parses comma-separated version lists keyed by browser ID,
// e.g. {"firefox": "20,26", "ie": "!8,-9,10"}.
//
// Browsers are processed in Browsers order and tokens in input order, so a
// later token for the same version overrides an earlier one once grouped.
// Unknown browser keys and empty tokens are ignored. Malformed tokens are
// skipped; the returned error joins a *MalformedInputError for each and
// never invalidates the records that were parsed.
func ParseInline(params map[string]string) ([]Record, error) {
	var (
		records []Record
		errs    []error
	)
	for _, b := range Browsers {
		list, ok := params[b.ID]
		if !ok {
			continue
		}
		for _, token := range strings.Split(list, ",") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			rec, err := parseToken(b.ID, token)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			records = append(records, rec)
		}
	}
	return records, errors.Join(errs...)
}

func parseToken(browser, token string) (Record, error) {
	status := StatusPassed
	version := token
	if s, ok := sigils[token[0]]; ok {
		status = s
		version = token[1:]
	}
	if version == "" {
		return Record{}, &MalformedInputError{Browser: browser, Token: token, Reason: "missing version"}
	}
	if !versionPattern.MatchString(version) {
		return Record{}, &MalformedInputError{Browser: browser, Token: token, Reason: "invalid version"}
	}
	return Record{Browser: browser, Version: NormalizeVersion(version), Status: status}, nil
}
