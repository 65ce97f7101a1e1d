package jobs

import (
	"encoding/json"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{StatusUnknown, "unknown"},
		{StatusPassed, "passed"},
		{StatusFailed, "failed"},
		{StatusError, "error"},
		{Status(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"passed", StatusPassed},
		{"PASSED", StatusPassed},
		{"failed", StatusFailed},
		{"errored", StatusError},
		{"error", StatusError},
		{"started", StatusUnknown},
		{"", StatusUnknown},
	}
	for _, tt := range tests {
		if got := ParseStatus(tt.in); got != tt.want {
			t.Errorf("ParseStatus(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStatus_JSON(t *testing.T) {
	data, err := json.Marshal(Record{Browser: "ie", Version: "8", Status: StatusError})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"browser":"ie","version":"8","status":"error"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if r.Status != StatusError {
		t.Errorf("Status = %v, want error", r.Status)
	}

	if err := json.Unmarshal([]byte(`{"status":"sideways"}`), &r); err == nil {
		t.Error("expected error for unknown status name")
	}
}
