package core

import (
	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Falls back to v4 if v7 is not available (for compatibility)
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
	UnitID       ID
	SampleID     ID
	AllocationID ID
	ReportID     ID
)

// String conversions for domain IDs
func (id UnitID) String() string       { return ID(id).String() }
func (id SampleID) String() string     { return ID(id).String() }
func (id AllocationID) String() string { return ID(id).String() }
func (id ReportID) String() string     { return ID(id).String() }
