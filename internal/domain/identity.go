package domain

import "github.com/google/uuid"

// Identity is who a connection claims to be. The broker does not
// authenticate identities; it only tracks the claim for the lifetime of
// the connection.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"username"`
}

// NewIdentity builds an Identity, generating a user id when the caller
// did not supply one.
func NewIdentity(userID, displayName string) Identity {
	if userID == "" {
		userID = uuid.NewString()
	}
	return Identity{UserID: userID, DisplayName: displayName}
}
