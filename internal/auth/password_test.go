package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCompare(t *testing.T) {
	hash, err := HashPassword("hunter22", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.NoError(t, ComparePassword(hash, "hunter22"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}

func TestHashPassword_SaltsEachHash(t *testing.T) {
	a, err := HashPassword("same", bcrypt.MinCost)
	require.NoError(t, err)
	b, err := HashPassword("same", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBurnPasswordCompare(t *testing.T) {
	assert.NotPanics(t, func() { BurnPasswordCompare("anything", bcrypt.MinCost) })
}

func TestDummyHash_UsesConfiguredCost(t *testing.T) {
	tests := []struct {
		name string
		cost int
		want int
	}{
		{"configured cost", bcrypt.MinCost + 1, bcrypt.MinCost + 1},
		{"too low falls back", 0, bcrypt.DefaultCost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bcrypt.Cost(dummyHash(tt.cost))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			hashed, err := HashPassword("pw", tt.cost)
			require.NoError(t, err)
			realCost, err := bcrypt.Cost([]byte(hashed))
			require.NoError(t, err)
			assert.Equal(t, realCost, got)
		})
	}
}
