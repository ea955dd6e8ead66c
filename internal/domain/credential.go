package domain

import (
	"encoding/json"
	"time"
)

// CredentialKind distinguishes the professional records owned by a user.
type CredentialKind string

const (
	CredentialLicense    CredentialKind = "license"
	CredentialBond       CredentialKind = "bond"
	CredentialExperience CredentialKind = "experience"
)

// CredentialStatus tracks review of a credential.
type CredentialStatus string

const (
	CredentialPending  CredentialStatus = "pending"
	CredentialApproved CredentialStatus = "approved"
)

// Credential is a license, bond or experience entry. Details are stored as submitted.
type Credential struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Kind      CredentialKind   `json:"kind"`
	Status    CredentialStatus `json:"status"`
	Details   json.RawMessage  `json:"details"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}
