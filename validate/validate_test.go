package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "set-*.json")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func containsError(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestValidateCardSet_Valid(t *testing.T) {
	path := writeTemp(t, `{
		"name": "Openers",
		"description": "Test openers",
		"cards": [
			{"name": "Sunil Gavaskar", "power": 94, "strike_rate": 41.0, "wickets": 1, "matches_played": 233, "runs_scored": 13214, "highest_score": 236},
			{"name": "Matthew Hayden", "power": 93, "strike_rate": 70.2, "wickets": 0, "matches_played": 270, "runs_scored": 15066, "highest_score": 380}
		]
	}`)

	result := validateCardSet(path)

	if !result.Valid {
		t.Errorf("Expected valid set, got errors: %v", result.Errors)
	}
	if !containsError(result.Errors, `✓ Set "Openers": 2 cards, 1 per deck`) {
		t.Errorf("Expected summary line, got %v", result.Errors)
	}
	if result.File != filepath.Base(path) {
		t.Errorf("Expected file %s, got %s", filepath.Base(path), result.File)
	}
}

func TestValidateCardSet_InvalidJSON(t *testing.T) {
	result := validateCardSet(writeTemp(t, `{"name": "x", "cards": [}`))

	if result.Valid {
		t.Error("Expected invalid result for malformed JSON")
	}
	if !containsError(result.Errors, "Invalid JSON") {
		t.Errorf("Expected JSON error, got %v", result.Errors)
	}
}

func TestValidateCardSet_MissingFile(t *testing.T) {
	result := validateCardSet("/nonexistent/set.json")

	if result.Valid {
		t.Error("Expected invalid result for missing file")
	}
	if !containsError(result.Errors, "Failed to read file") {
		t.Errorf("Expected read error, got %v", result.Errors)
	}
}

func TestValidateCardSet_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing name",
			content: `{"cards": [{"name": "A", "power": 1}, {"name": "B", "power": 2}]}`,
			want:    "set name is required",
		},
		{
			name:    "too few cards",
			content: `{"name": "solo", "cards": [{"name": "A"}]}`,
			want:    "at least 2 cards",
		},
		{
			name:    "duplicate slug",
			content: `{"name": "dup", "cards": [{"name": "Shane Warne", "power": 1}, {"name": "shane warne", "power": 2}]}`,
			want:    `slug "shane-warne" already used by card 1`,
		},
		{
			name:    "negative value",
			content: `{"name": "neg", "cards": [{"name": "A", "wickets": -3}, {"name": "B", "power": 2}]}`,
			want:    "wickets cannot be negative",
		},
		{
			name:    "identical stats",
			content: `{"name": "twins", "cards": [{"name": "Steve Waugh", "power": 90}, {"name": "Mark Waugh", "power": 90}]}`,
			want:    `"Steve Waugh" and "Mark Waugh" have identical stats`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateCardSet(writeTemp(t, tt.content))
			if result.Valid {
				t.Fatal("Expected invalid result")
			}
			if !containsError(result.Errors, tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, result.Errors)
			}
		})
	}
}

func TestValidateCardSet_ShippedSets(t *testing.T) {
	files, _ := filepath.Glob(filepath.Join("..", "cards", "*.json"))
	for _, f := range files {
		if result := validateCardSet(f); !result.Valid {
			t.Errorf("%s is invalid: %v", f, result.Errors)
		}
	}
}

func TestReport(t *testing.T) {
	dir := t.TempDir()
	good := `{"name": "ok", "cards": [{"name": "A", "power": 1}, {"name": "B", "power": 2}]}`
	os.WriteFile(filepath.Join(dir, "good.json"), []byte(good), 0o644)

	var out bytes.Buffer
	if !report(&out, dir) {
		t.Errorf("Expected all sets valid:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "1 of 1 card sets valid") {
		t.Errorf("Unexpected summary:\n%s", out.String())
	}

	os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"cards": []}`), 0o644)
	out.Reset()
	if report(&out, dir) {
		t.Error("Expected report to fail with an invalid set")
	}
	if !strings.Contains(out.String(), "bad.json: ❌ INVALID") {
		t.Errorf("Unexpected output:\n%s", out.String())
	}

	out.Reset()
	if report(&out, t.TempDir()) {
		t.Error("Expected an empty directory to fail")
	}
}
