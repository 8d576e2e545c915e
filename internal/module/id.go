package module

import "github.com/google/uuid"

// ID uniquely identifies a module for the lifetime of a session.
type ID string

// NewID returns a fresh random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// ParseID validates s as an ID.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return ID(u.String()), nil
}

func (id ID) String() string {
	return string(id)
}
