package identity

import "github.com/google/uuid"

// Identity is the authenticated principal resolved for a request.
// It is read-only outside the identity context and is only used for
// ownership comparison.
type Identity struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
}

// IsZero reports whether the identity is empty
func (i Identity) IsZero() bool {
	return i.ID == uuid.Nil
}

// Owns reports whether this identity is the given owner
func (i Identity) Owns(ownerID uuid.UUID) bool {
	return !i.IsZero() && i.ID == ownerID
}
