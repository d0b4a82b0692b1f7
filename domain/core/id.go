package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
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
	RegulatorID  ID
	ReplicateID  ID
	ExpressionID ID
	SourceKey    ID
)

// String conversions for domain IDs
func (id RegulatorID) String() string  { return ID(id).String() }
func (id ReplicateID) String() string  { return ID(id).String() }
func (id ExpressionID) String() string { return ID(id).String() }
func (id SourceKey) String() string    { return ID(id).String() }

// ParseReplicateID parses a promoter-set signature identifier. Signatures are
// integer database keys; anything else is rejected so the caller can skip it.
func ParseReplicateID(s string) (ReplicateID, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, fmt.Errorf("replicate ID cannot be empty")
	}
	// integer-valued floats show up when the metadata went through a spreadsheet
	s = strings.TrimSuffix(s, ".0")
	n, err := strconv.Atoi(s)
	if err != nil {
		return "", 0, fmt.Errorf("replicate ID %q is not an integer: %w", s, err)
	}
	return ReplicateID(s), n, nil
}

// ParseExpressionID parses an expression condition identifier
func ParseExpressionID(s string) (ExpressionID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("expression ID cannot be empty")
	}
	return ExpressionID(s), nil
}
