package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	SessionID ID
	RunID     ID
)

func (id SessionID) String() string { return ID(id).String() }
func (id RunID) String() string     { return ID(id).String() }

// NewSessionID issues an identifier for a browser workspace
func NewSessionID() SessionID { return SessionID(NewID()) }

// NewRunID issues an identifier for a recorded analysis run
func NewRunID() RunID { return RunID(NewID()) }

// ParseSessionID validates a client-supplied session identifier. Only well-formed
// UUIDs are accepted so that arbitrary cookie values never become map keys.
func ParseSessionID(s string) (SessionID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("session ID cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid session ID: %w", err)
	}
	return SessionID(parsed.String()), nil
}

// SessionTagLength is the number of hex characters in a session tag
const SessionTagLength = 16

// Tag returns a one-way fingerprint of the session ID. The raw ID doubles as
// the session cookie, so logs and the run ledger only ever see the tag.
func (id SessionID) Tag() string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])[:SessionTagLength]
}

// ValidSessionTag reports whether s has the shape produced by SessionID.Tag
func ValidSessionTag(s string) bool {
	if len(s) != SessionTagLength {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
