// Package social provides the value types shared by the religion, civilization
// and diplomacy registries: identifiers, domains, permissions, roles, notices
// and the domain error catalog.
package social

import (
	"time"

	"github.com/google/uuid"
)

// PlayerID identifies a player (the game's stable player UID).
type PlayerID string

// ReligionID is a unique identifier for a religion.
type ReligionID string

// RoleID identifies a role within one religion.
type RoleID string

// CivilizationID is a unique identifier for a civilization.
type CivilizationID string

// InviteID identifies a religion or civilization invitation.
type InviteID string

// NewID returns a fresh random identifier.
func NewID() string {
	return uuid.NewString()
}

// Live reports whether a record expiring at expiresAt is still in force at now.
// A zero expiry never lapses.
func Live(expiresAt, now time.Time) bool {
	return expiresAt.IsZero() || now.Before(expiresAt)
}
