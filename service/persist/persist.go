package persist

import (
	"github.com/google/uuid"
)

// DBID represents a backend-issued identifier. The backend keys every table by UUID.
type DBID string

// GenerateID generates a new random identifier in the backend's format
func GenerateID() DBID {
	return DBID(uuid.NewString())
}

func (d DBID) String() string {
	return string(d)
}

// Valid reports whether the ID is a well-formed UUID
func (d DBID) Valid() bool {
	_, err := uuid.Parse(string(d))
	return err == nil
}
