package core

import (
	"strings"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

func TestIDString(t *testing.T) {
	id := ID("test-123")
	if id.String() != "test-123" {
		t.Errorf("Expected String() to return 'test-123', got '%s'", id.String())
	}
	if RunID("run-1").String() != "run-1" {
		t.Errorf("RunID String() mismatch")
	}
}

func TestParseSessionID(t *testing.T) {
	issued := NewSessionID()

	parsed, err := ParseSessionID(" " + issued.String() + " ")
	if err != nil {
		t.Fatalf("Expected issued ID to parse, got %v", err)
	}
	if parsed != issued {
		t.Errorf("Expected %s, got %s", issued, parsed)
	}

	for _, bad := range []string{"", "   ", "not-a-uuid", "../../etc/passwd"} {
		if _, err := ParseSessionID(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestSessionTag(t *testing.T) {
	id := NewSessionID()
	tag := id.Tag()

	if len(tag) != SessionTagLength {
		t.Fatalf("Expected %d characters, got %q", SessionTagLength, tag)
	}
	if tag != id.Tag() {
		t.Errorf("Expected tag to be stable")
	}
	if strings.Contains(id.String(), tag) {
		t.Errorf("Tag %s must not be a substring of the session ID", tag)
	}
	if tag == NewSessionID().Tag() {
		t.Errorf("Expected distinct sessions to have distinct tags")
	}
	if !ValidSessionTag(tag) {
		t.Errorf("Expected %s to be a valid tag", tag)
	}

	for _, bad := range []string{"", id.String(), "0123456789ABCDEF", "0123456789abcdeg", "0123"} {
		if ValidSessionTag(bad) {
			t.Errorf("Expected %q to be rejected", bad)
		}
	}
}
