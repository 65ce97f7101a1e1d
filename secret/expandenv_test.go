package secret

import (
	"errors"
	"strings"
	"testing"
)

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("BADGES_TEST_USER", "acme")
	t.Setenv("BADGES_TEST_EMPTY", "")

	tests := []struct {
		in, want string
	}{
		{"no variables", "no variables"},
		{"${BADGES_TEST_USER}", "acme"},
		{"user=$BADGES_TEST_USER/jobs", "user=acme/jobs"},
		{"[${BADGES_TEST_EMPTY}]", "[]"},
		{"$BADGES_TEST_UNSET_PLAIN!", "!"},
		{"$$${BADGES_TEST_USER}", "$acme"},
		{"cost: $5", "cost: $5"},
		{"${not valid}", "${not valid}"},
		{"${unterminated", "${unterminated"},
		{"trailing $", "trailing $"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExpandEnvStrict(tt.in)
			if err != nil {
				t.Fatalf("ExpandEnvStrict(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ExpandEnvStrict(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpandEnvStrict_ReportsEveryMissingVariable(t *testing.T) {
	t.Setenv("BADGES_TEST_USER", "acme")

	_, err := ExpandEnvStrict("${BADGES_TEST_B} ${BADGES_TEST_USER} ${BADGES_TEST_A} ${BADGES_TEST_B}")
	if !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("error = %v, want ErrMissingEnv", err)
	}
	if !strings.HasSuffix(err.Error(), ": BADGES_TEST_A, BADGES_TEST_B") {
		t.Errorf("error = %v, want sorted unique names", err)
	}
}
