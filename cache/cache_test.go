package cache

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	cases := map[string]struct {
		key  string
		want error
	}{
		"keyer output":   {"fetch:size:0123456789abcdef", nil},
		"at the limit":   {"fetch:" + strings.Repeat("a", MaxKeyLength-6), nil},
		"empty":          {"", ErrInvalidKey},
		"blank":          {"  ", ErrInvalidKey},
		"embedded space": {"fetch:body:a b", ErrInvalidKey},
		"line break":     {"fetch:body:a\nb", ErrInvalidKey},
		"nul byte":       {"fetch:body:\x00", ErrInvalidKey},
		"over the limit": {strings.Repeat("a", MaxKeyLength+1), ErrKeyTooLong},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if err := ValidateKey(tc.key); !errors.Is(err, tc.want) {
				t.Errorf("ValidateKey(%q) = %v, want %v", tc.key, err, tc.want)
			}
		})
	}
}

func TestDefaultKeyerOutputIsValid(t *testing.T) {
	key, err := NewDefaultKeyer().Key(FetchKey{
		Method: "GET",
		URL:    "https://api.travis-ci.org/repos/FormidableLabs/victory/branches/main",
		Query:  map[string][]string{"note": {"has spaces\nand breaks"}},
	})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if err := ValidateKey(key); err != nil {
		t.Errorf("ValidateKey(%q) = %v", key, err)
	}
}

func TestEventKind_String(t *testing.T) {
	want := map[EventKind]string{
		EventHit:       "hit",
		EventMiss:      "miss",
		EventCoalesced: "coalesced",
		EventStored:    "stored",
		EventEvicted:   "evicted",
		EventKind(99):  "unknown",
	}
	for kind, label := range want {
		if got := kind.String(); got != label {
			t.Errorf("EventKind(%d).String() = %q, want %q", int(kind), got, label)
		}
	}
}
