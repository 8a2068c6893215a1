package workload

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 123456789, time.FixedZone("CET", 3600))

func newTestGenerator(cfg Config) *Generator {
	g := NewGenerator(cfg)
	g.Now = func() time.Time { return fixedNow }

	return g
}

func TestTimestamp(t *testing.T) {
	got := Timestamp(fixedNow)
	want := "2024-03-09T13:05:07.123Z"

	if got != want {
		t.Errorf("Timestamp = %q, want %q", got, want)
	}
}

func TestLargeDeterministic(t *testing.T) {
	cfg := Config{Users: 25, Seed: 42}

	doc1, err := newTestGenerator(cfg).Large()
	if err != nil {
		t.Fatalf("first generation failed: %v", err)
	}

	doc2, err := newTestGenerator(cfg).Large()
	if err != nil {
		t.Fatalf("second generation failed: %v", err)
	}

	if !reflect.DeepEqual(doc1, doc2) {
		t.Error("documents are not deterministic for same seed")
	}
}

func TestLargeUserCount(t *testing.T) {
	tests := []struct {
		name  string
		users int
	}{
		{"default", DefaultUsers},
		{"few", 3},
		{"none", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := newTestGenerator(Config{Users: tt.users, Seed: 7}).Large()
			if err != nil {
				t.Fatalf("generation failed: %v", err)
			}

			if len(doc.Users) != tt.users {
				t.Errorf("users = %d, want %d", len(doc.Users), tt.users)
			}
			if doc.UpdatedAt != Timestamp(fixedNow) {
				t.Errorf("updatedAt = %q, want %q", doc.UpdatedAt, Timestamp(fixedNow))
			}
		})
	}
}

func TestLargeNegativeUsers(t *testing.T) {
	_, err := newTestGenerator(Config{Users: -1}).Large()
	if err == nil {
		t.Error("expected error for negative user count")
	}
}

func TestLargeUserFields(t *testing.T) {
	doc, err := newTestGenerator(Config{Users: 50, Seed: 1}).Large()
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	seen := make(map[string]bool, len(doc.Users))

	for i, u := range doc.Users {
		if _, err := uuid.Parse(u.ID); err != nil {
			t.Errorf("user %d: invalid id %q: %v", i, u.ID, err)
		}
		if seen[u.ID] {
			t.Errorf("user %d: duplicate id %q", i, u.ID)
		}
		seen[u.ID] = true

		if u.Name == "" {
			t.Errorf("user %d: empty name", i)
		}
		if !strings.Contains(u.Email, "@") {
			t.Errorf("user %d: email %q missing @", i, u.Email)
		}
		if u.Address == "" {
			t.Errorf("user %d: empty address", i)
		}
		if u.Phone == "" {
			t.Errorf("user %d: empty phone", i)
		}
	}
}

func TestSmallDocumentJSON(t *testing.T) {
	doc, err := newTestGenerator(Config{Seed: 3}).Small()
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"id", "name", "updatedAt"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing key %q in %s", key, raw)
		}
	}
	if len(fields) != 3 {
		t.Errorf("keys = %d, want 3: %s", len(fields), raw)
	}
}

func TestLargeDocumentJSONKeys(t *testing.T) {
	doc, err := newTestGenerator(Config{Users: 1, Seed: 3}).Large()
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	s := string(raw)
	for _, key := range []string{`"users":[`, `"updatedAt":`, `"email":`, `"phone":`, `"address":`} {
		if !strings.Contains(s, key) {
			t.Errorf("expected %s in %s", key, s)
		}
	}
}
