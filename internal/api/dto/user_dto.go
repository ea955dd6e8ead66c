package dto

import (
	"time"

	"github.com/spec-kit/compliance-portal/internal/domain"
)

// UserResponse is the public view of an account. The password hash never leaves the service.
type UserResponse struct {
	ID               string                  `json:"id"`
	Name             string                  `json:"name"`
	FirstName        string                  `json:"firstName"`
	LastName         string                  `json:"lastName"`
	Email            string                  `json:"email"`
	PrimaryEmail     string                  `json:"primaryEmail"`
	WorkEmail        string                  `json:"workEmail,omitempty"`
	LoginEmail       string                  `json:"loginEmail"`
	Phone            string                  `json:"phone"`
	PrimaryPhone     string                  `json:"primaryPhone"`
	WorkPhone        string                  `json:"workPhone,omitempty"`
	Role             domain.Role             `json:"role"`
	Status           domain.UserStatus       `json:"status"`
	RejectionReason  string                  `json:"rejectionReason,omitempty"`
	OnboardingStatus domain.OnboardingStatus `json:"onboardingStatus"`
	AccessLevel      domain.AccessLevel      `json:"accessLevel"`
	Position         string                  `json:"position,omitempty"`
	Location         string                  `json:"location,omitempty"`
	TimeZone         string                  `json:"timeZone"`
	HireDate         *time.Time              `json:"hireDate,omitempty"`
	EmployeeID       *string                 `json:"employeeID,omitempty"`
	Manager          *string                 `json:"manager,omitempty"`
	ProfilePicture   string                  `json:"profilePicture,omitempty"`
	HomeAddress      domain.Address          `json:"homeAddress"`
	MailingAddress   domain.Address          `json:"mailingAddress"`
	EmergencyContact domain.EmergencyContact `json:"emergencyContact"`
	SocialMedia      domain.SocialMedia      `json:"socialMedia"`
	Bio              string                  `json:"bio,omitempty"`
	Departments      []domain.Department     `json:"departments"`
	Licenses         []domain.Credential     `json:"licenses"`
	Bonds            []domain.Credential     `json:"bonds"`
	Experiences      []domain.Credential     `json:"experiences"`
	CreatedAt        time.Time               `json:"createdAt"`
	UpdatedAt        time.Time               `json:"updatedAt"`
}

// NewUserResponse maps a user with its loaded associations.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:               u.ID,
		Name:             u.FullName(),
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Email:            u.Identity.AuthoritativeEmail(),
		PrimaryEmail:     u.Identity.PrimaryEmail,
		WorkEmail:        u.Identity.WorkEmail,
		LoginEmail:       u.Identity.LoginEmail,
		Phone:            u.PrimaryPhone,
		PrimaryPhone:     u.PrimaryPhone,
		WorkPhone:        u.WorkPhone,
		Role:             u.Role,
		Status:           u.Status,
		RejectionReason:  u.RejectionReason,
		OnboardingStatus: u.OnboardingStatus,
		AccessLevel:      u.AccessLevel(),
		Position:         u.Position,
		Location:         u.Location,
		TimeZone:         u.TimeZone,
		HireDate:         u.HireDate,
		EmployeeID:       u.EmployeeID,
		Manager:          u.ManagerID,
		ProfilePicture:   u.ProfilePicture,
		HomeAddress:      u.HomeAddress,
		MailingAddress:   u.MailingAddress,
		EmergencyContact: u.EmergencyContact,
		SocialMedia:      u.SocialMedia,
		Bio:              u.Bio,
		Departments:      emptyIfNil(u.Departments),
		Licenses:         emptyIfNil(u.Licenses),
		Bonds:            emptyIfNil(u.Bonds),
		Experiences:      emptyIfNil(u.Experiences),
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// NewUserResponses maps a list of users.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// AuthResponse is returned by signup, login and admin account creation.
type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresIn int          `json:"expiresIn"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Message   string       `json:"message,omitempty"`
}

// NewAuthResponse pairs a user with an issued session token.
func NewAuthResponse(u *domain.User, token domain.IssuedToken, message string) AuthResponse {
	return AuthResponse{
		User:      NewUserResponse(u),
		Token:     token.Value,
		ExpiresIn: token.ExpiresIn,
		ExpiresAt: token.ExpiresAt,
		Message:   message,
	}
}

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}
