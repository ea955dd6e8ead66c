package domain

import (
	"errors"
	"strings"
	"time"
)

// Role is the authorization level of a portal account.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleManager         Role = "manager"
	RoleUser            Role = "user"
	RoleExternalPartner Role = "external_partner"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser, RoleExternalPartner:
		return true
	}
	return false
}

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive        UserStatus = "active"
	UserStatusInactive      UserStatus = "inactive"
	UserStatusPendingReview UserStatus = "pending_review"
	UserStatusRejected      UserStatus = "rejected"
)

// OnboardingStatus gates which profile fields and actions are available.
type OnboardingStatus string

const (
	OnboardingSignup     OnboardingStatus = "signup"
	OnboardingInProgress OnboardingStatus = "onboarding"
	OnboardingCompleted  OnboardingStatus = "completed"
	OnboardingApproved   OnboardingStatus = "approved"
)

// AccessLevel summarizes what the front end may show a signed-in user.
type AccessLevel string

const (
	AccessOnboarding AccessLevel = "onboarding"
	AccessPending    AccessLevel = "pending"
	AccessFull       AccessLevel = "full"
)

// DefaultTimeZone is assigned when an account does not name one.
const DefaultTimeZone = "America/New_York"

// DefaultCountry is used for empty addresses.
const DefaultCountry = "United States"

// ErrIdentityEmailRequired is returned when an identity transition gets an empty address.
var ErrIdentityEmailRequired = errors.New("email required")

// Identity holds the addresses an account can sign in with.
// LoginEmail always equals WorkEmail once one is assigned, else PrimaryEmail.
type Identity struct {
	PrimaryEmail string
	WorkEmail    string
	LoginEmail   string
}

// NewIdentity starts an identity whose login email is the primary email.
func NewIdentity(primaryEmail string) (Identity, error) {
	primary := NormalizeEmail(primaryEmail)
	if primary == "" {
		return Identity{}, ErrIdentityEmailRequired
	}
	return Identity{PrimaryEmail: primary, LoginEmail: primary}, nil
}

// AssignWorkEmail is the only transition that moves the login email.
// It is invoked by the approval workflow and by administrative account creation.
func (i *Identity) AssignWorkEmail(workEmail string) error {
	work := NormalizeEmail(workEmail)
	if work == "" {
		return ErrIdentityEmailRequired
	}
	i.WorkEmail = work
	i.LoginEmail = work
	return nil
}

// AuthoritativeEmail is the address embedded in session tokens.
func (i Identity) AuthoritativeEmail() string {
	if i.WorkEmail != "" {
		return i.WorkEmail
	}
	return i.PrimaryEmail
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Address is a postal address.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zipCode"`
}

// EmergencyContact is who to call for a user.
type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
}

// SocialMedia holds optional profile links.
type SocialMedia struct {
	LinkedIn string `json:"linkedin"`
	Twitter  string `json:"twitter"`
	Facebook string `json:"facebook"`
}

// User is the persisted account record.
type User struct {
	ID               string
	FirstName        string
	LastName         string
	EmployeeID       *string
	Position         string
	Location         string
	TimeZone         string
	HireDate         *time.Time
	ManagerID        *string
	Identity         Identity
	PasswordHash     string
	Role             Role
	Status           UserStatus
	RejectionReason  string
	OnboardingStatus OnboardingStatus
	ProfilePicture   string
	PrimaryPhone     string
	WorkPhone        string
	HomeAddress      Address
	MailingAddress   Address
	EmergencyContact EmergencyContact
	SocialMedia      SocialMedia
	Bio              string
	DepartmentIDs    []string
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Populated on read by the association loader.
	Departments []Department
	Licenses    []Credential
	Bonds       []Credential
	Experiences []Credential
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// AccessLevel derives the front end access level from onboarding progress.
func (u *User) AccessLevel() AccessLevel {
	switch {
	case u.OnboardingStatus == OnboardingSignup:
		return AccessOnboarding
	case u.OnboardingStatus == OnboardingCompleted && u.Status == UserStatusPendingReview:
		return AccessPending
	default:
		return AccessFull
	}
}

// CanCompleteOnboarding reports whether the onboarding form may still be submitted.
func (u *User) CanCompleteOnboarding() bool {
	return u.OnboardingStatus == OnboardingSignup || u.OnboardingStatus == OnboardingInProgress
}

// SplitName turns a display name into first and last name; a single word is used for both.
func SplitName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	first := parts[0]
	last := strings.Join(parts[1:], " ")
	if last == "" {
		last = first
	}
	return first, last
}

// WithDefaults fills empty address countries.
func (a Address) WithDefaults() Address {
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	return a
}

// Merge overlays the non-empty fields of patch.
func (a Address) Merge(patch Address) Address {
	a.Street = firstNonEmpty(patch.Street, a.Street)
	a.City = firstNonEmpty(patch.City, a.City)
	a.State = firstNonEmpty(patch.State, a.State)
	a.Country = firstNonEmpty(patch.Country, a.Country)
	a.ZipCode = firstNonEmpty(patch.ZipCode, a.ZipCode)
	return a
}

// Merge overlays the non-empty fields of patch.
func (e EmergencyContact) Merge(patch EmergencyContact) EmergencyContact {
	e.Name = firstNonEmpty(patch.Name, e.Name)
	e.Relationship = firstNonEmpty(patch.Relationship, e.Relationship)
	e.Phone = firstNonEmpty(patch.Phone, e.Phone)
	e.Email = firstNonEmpty(patch.Email, e.Email)
	return e
}

// Merge overlays the non-empty fields of patch.
func (s SocialMedia) Merge(patch SocialMedia) SocialMedia {
	s.LinkedIn = firstNonEmpty(patch.LinkedIn, s.LinkedIn)
	s.Twitter = firstNonEmpty(patch.Twitter, s.Twitter)
	s.Facebook = firstNonEmpty(patch.Facebook, s.Facebook)
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
