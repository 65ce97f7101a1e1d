package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Mode selects what a fetch resolves to. Two fetches of the same URL in
// different modes are different units of work.
type Mode string

const (
	ModeBody    Mode = "body"
	ModeHeaders Mode = "headers"
	ModeSize    Mode = "size"
)

// FetchKey identifies a cacheable outbound request.
type FetchKey struct {
	Method string
	URL    string
	Query  map[string][]string
	Mode   Mode

	// Variant separates otherwise identical requests whose results differ,
	// such as a size probe asking for compressed vs. uncompressed bytes.
	Variant string
}

// String is a readable rendering used in logs.
func (k FetchKey) String() string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(k.Method))
	b.WriteByte(' ')
	b.WriteString(k.URL)
	if len(k.Query) > 0 {
		b.WriteByte('?')
		b.WriteString(encodeQuery(k.Query))
	}
	if k.Mode != "" {
		b.WriteString(" [")
		b.WriteString(string(k.Mode))
		if k.Variant != "" {
			b.WriteByte(':')
			b.WriteString(k.Variant)
		}
		b.WriteByte(']')
	}
	return b.String()
}

// Keyer derives store keys from fetch keys.
//
// Contract:
// - Determinism: equal FetchKeys must produce equal keys regardless of
//   query map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(k FetchKey) (string, error)
}

// DefaultKeyer generates SHA-256 based keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic key.
// Format: fetch:<mode>:<hash>
// where hash is the hex SHA-256 of the canonical JSON of k.
func (d *DefaultKeyer) Key(k FetchKey) (string, error) {
	if k.URL == "" {
		return "", ErrInvalidKey
	}

	canonical, err := canonicalize(k)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize key: %w", err)
	}

	hash := sha256.Sum256(canonical)
	mode := k.Mode
	if mode == "" {
		mode = ModeBody
	}
	return fmt.Sprintf("fetch:%s:%s", mode, hex.EncodeToString(hash[:])), nil
}

// canonicalize produces a deterministic JSON representation of the key.
// Query parameters are sorted by name; repeated values keep their order.
func canonicalize(k FetchKey) ([]byte, error) {
	method := strings.ToUpper(k.Method)
	if method == "" {
		method = "GET"
	}

	names := make([]string, 0, len(k.Query))
	for name := range k.Query {
		names = append(names, name)
	}
	sort.Strings(names)

	query := make([][2]any, 0, len(names))
	for _, name := range names {
		query = append(query, [2]any{name, k.Query[name]})
	}

	return json.Marshal([]any{method, k.URL, query, k.Mode, k.Variant})
}

func encodeQuery(q map[string][]string) string {
	names := make([]string, 0, len(q))
	for name := range q {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		for _, v := range q[name] {
			parts = append(parts, name+"="+v)
		}
	}
	return strings.Join(parts, "&")
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
