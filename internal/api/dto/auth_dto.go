package dto

import (
	"encoding/json"
	"strings"

	"github.com/spec-kit/compliance-portal/internal/domain"
	"github.com/spec-kit/compliance-portal/internal/service"
	apperrors "github.com/spec-kit/compliance-portal/pkg/util"
)

// Messages reported when a required field is missing.
const (
	MsgSignupRequired         = "Name, email, password, and phone number are required"
	MsgLoginRequired          = "Email and password are required"
	MsgChangePasswordRequired = "Current and new passwords are required"
	MsgEmailRequired          = "Email is required"
	MsgResetRequired          = "Token and new password are required"
	MsgApprovalRequired       = "Work email, position, hire date, and employee ID are required"
	MsgAdminCreateRequired    = "First name, last name, primary email, and password are required"
	MsgTokenRequired          = "Token is required"
)

// SignupRequest payload for self-service registration.
type SignupRequest struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
}

func (r SignupRequest) ToInput() service.SignupInput {
	return service.SignupInput{Name: r.Name, Email: r.Email, Password: r.Password, PhoneNumber: r.PhoneNumber}
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest payload for authenticated password changes.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// ForgotPasswordRequest payload for initiating a reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

// ResetPasswordRequest payload for consuming a reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// RevokeTokenRequest payload for the admin revocation endpoint.
type RevokeTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// OnboardingRequest is the profile submitted at the end of onboarding.
// Credential entries are stored as submitted.
type OnboardingRequest struct {
	ProfilePicture   string                  `json:"profilePicture" validate:"omitempty,url"`
	HomeAddress      domain.Address          `json:"homeAddress"`
	MailingAddress   domain.Address          `json:"mailingAddress"`
	EmergencyContact domain.EmergencyContact `json:"emergencyContact"`
	SocialMedia      domain.SocialMedia      `json:"socialMedia"`
	Bio              string                  `json:"bio"`
	Experiences      []json.RawMessage       `json:"experiences"`
	Licenses         []json.RawMessage       `json:"licenses"`
	Bonds            []json.RawMessage       `json:"bonds"`
}

func (r OnboardingRequest) ToInput() service.OnboardingInput {
	return service.OnboardingInput{
		ProfilePicture:   r.ProfilePicture,
		HomeAddress:      r.HomeAddress,
		MailingAddress:   r.MailingAddress,
		EmergencyContact: r.EmergencyContact,
		SocialMedia:      r.SocialMedia,
		Bio:              r.Bio,
		Experiences:      r.Experiences,
		Licenses:         r.Licenses,
		Bonds:            r.Bonds,
	}
}

// ApproveUserRequest carries the employment data assigned on approval.
type ApproveUserRequest struct {
	WorkEmail   string   `json:"workEmail" validate:"required,email"`
	Position    string   `json:"position" validate:"required"`
	HireDate    string   `json:"hireDate" validate:"required"`
	EmployeeID  string   `json:"employeeID" validate:"required"`
	Manager     string   `json:"manager"`
	Departments []string `json:"departments"`
	Location    string   `json:"location"`
}

func (r ApproveUserRequest) ToInput() (service.ApprovalInput, error) {
	hireDate, err := ParseDate(r.HireDate)
	if err != nil {
		return service.ApprovalInput{}, apperrors.NewValidationError("Invalid hire date", map[string]any{"hireDate": r.HireDate})
	}
	in := service.ApprovalInput{
		WorkEmail:     r.WorkEmail,
		Position:      strings.TrimSpace(r.Position),
		HireDate:      hireDate,
		EmployeeID:    r.EmployeeID,
		DepartmentIDs: r.Departments,
		Location:      strings.TrimSpace(r.Location),
	}
	if manager := strings.TrimSpace(r.Manager); manager != "" {
		in.ManagerID = &manager
	}
	return in, nil
}

// RejectUserRequest carries an optional reason shown to the applicant at login.
type RejectUserRequest struct {
	RejectionReason string `json:"rejectionReason"`
}

// AdminCreateUserRequest creates a fully approved account.
type AdminCreateUserRequest struct {
	FirstName        string                  `json:"firstName" validate:"required"`
	LastName         string                  `json:"lastName" validate:"required"`
	PrimaryEmail     string                  `json:"primaryEmail" validate:"required,email"`
	WorkEmail        string                  `json:"workEmail" validate:"omitempty,email"`
	PrimaryPhone     string                  `json:"primaryPhone"`
	WorkPhone        string                  `json:"workPhone"`
	Password         string                  `json:"password" validate:"required"`
	Position         string                  `json:"position"`
	Location         string                  `json:"location"`
	TimeZone         string                  `json:"timeZone"`
	HireDate         string                  `json:"hireDate"`
	EmployeeID       string                  `json:"employeeID"`
	HomeAddress      domain.Address          `json:"homeAddress"`
	MailingAddress   domain.Address          `json:"mailingAddress"`
	EmergencyContact domain.EmergencyContact `json:"emergencyContact"`
	SocialMedia      domain.SocialMedia      `json:"socialMedia"`
	Role             string                  `json:"role" validate:"omitempty,oneof=admin manager user external_partner"`
}

func (r AdminCreateUserRequest) ToInput() (service.AdminCreateUserInput, error) {
	hireDate, err := parseOptionalDate("hireDate", r.HireDate)
	if err != nil {
		return service.AdminCreateUserInput{}, err
	}
	return service.AdminCreateUserInput{
		FirstName:        strings.TrimSpace(r.FirstName),
		LastName:         strings.TrimSpace(r.LastName),
		PrimaryEmail:     r.PrimaryEmail,
		WorkEmail:        r.WorkEmail,
		PrimaryPhone:     r.PrimaryPhone,
		WorkPhone:        r.WorkPhone,
		Password:         r.Password,
		Position:         r.Position,
		Location:         r.Location,
		TimeZone:         r.TimeZone,
		HireDate:         hireDate,
		EmployeeID:       r.EmployeeID,
		HomeAddress:      r.HomeAddress,
		MailingAddress:   r.MailingAddress,
		EmergencyContact: r.EmergencyContact,
		SocialMedia:      r.SocialMedia,
		Role:             domain.Role(r.Role),
	}, nil
}
