package gameid

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Parallel()

	id := New()
	if len(id) != 26 {
		t.Fatalf("expected 26 characters, got %d", len(id))
	}
	if err := Validate(id); err != nil {
		t.Fatalf("generated id failed validation: %v", err)
	}
	created, err := Time(id)
	if err != nil {
		t.Fatal(err)
	}
	if d := time.Since(created); d < 0 || d > time.Minute {
		t.Errorf("embedded time %v is off by %v", created, d)
	}
}

func TestNewUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for range 1000 {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestTimeSorted(t *testing.T) {
	t.Parallel()

	var ids []string
	for range 5 {
		ids = append(ids, New())
		time.Sleep(2 * time.Millisecond)
	}
	for i := 1; i < len(ids); i++ {
		if strings.Compare(ids[i-1], ids[i]) >= 0 {
			t.Errorf("ids not sorted: %s >= %s", ids[i-1], ids[i])
		}
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	id, err := NewFrom(bytes.NewReader(bytes.Repeat([]byte{0xab}, 64)))
	if err != nil {
		t.Fatal(err)
	}
	u, err := Parse(id)
	if err != nil {
		t.Fatal(err)
	}
	if Encode(u) != id {
		t.Errorf("round trip %s -> %s", id, Encode(u))
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid", New(), false},
		{"too short", "abc", true},
		{"too long", strings.Repeat("0", 27), true},
		{"bad alphabet", strings.Repeat("u", 26), true},
		{"not v7", strings.Repeat("0", 26), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := Validate(tt.id); (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}
