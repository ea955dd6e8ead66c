package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity_Transitions(t *testing.T) {
	id, err := NewIdentity("  Jane@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", id.PrimaryEmail)
	assert.Equal(t, "jane@example.com", id.LoginEmail)
	assert.Equal(t, "jane@example.com", id.AuthoritativeEmail())

	require.NoError(t, id.AssignWorkEmail("J.Doe@Portal.io"))
	assert.Equal(t, "jane@example.com", id.PrimaryEmail)
	assert.Equal(t, "j.doe@portal.io", id.WorkEmail)
	assert.Equal(t, "j.doe@portal.io", id.LoginEmail)
	assert.Equal(t, "j.doe@portal.io", id.AuthoritativeEmail())
}

func TestIdentity_RejectsEmptyEmail(t *testing.T) {
	_, err := NewIdentity("   ")
	assert.ErrorIs(t, err, ErrIdentityEmailRequired)

	id, err := NewIdentity("a@x.com")
	require.NoError(t, err)
	assert.ErrorIs(t, id.AssignWorkEmail(""), ErrIdentityEmailRequired)
	assert.Equal(t, "a@x.com", id.LoginEmail)
}

func TestUser_AccessLevel(t *testing.T) {
	tests := []struct {
		stage  OnboardingStatus
		status UserStatus
		want   AccessLevel
	}{
		{OnboardingSignup, UserStatusPendingReview, AccessOnboarding},
		{OnboardingCompleted, UserStatusPendingReview, AccessPending},
		{OnboardingCompleted, UserStatusActive, AccessFull},
		{OnboardingApproved, UserStatusActive, AccessFull},
		{OnboardingInProgress, UserStatusPendingReview, AccessFull},
	}
	for _, tt := range tests {
		u := &User{OnboardingStatus: tt.stage, Status: tt.status}
		assert.Equal(t, tt.want, u.AccessLevel(), "%s/%s", tt.stage, tt.status)
	}
}

func TestSplitName(t *testing.T) {
	first, last := SplitName("Ada")
	assert.Equal(t, "Ada", first)
	assert.Equal(t, "Ada", last)

	first, last = SplitName("  Mary Ann  Smith ")
	assert.Equal(t, "Mary", first)
	assert.Equal(t, "Ann Smith", last)
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleExternalPartner.Valid())
	assert.False(t, Role("staff").Valid())
}
