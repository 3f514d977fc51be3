package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleIsValid(t *testing.T) {
	for _, role := range ValidRoles() {
		assert.True(t, role.IsValid(), "role %q", role)
	}

	assert.False(t, Role("").IsValid())
	assert.False(t, Role("superuser").IsValid())
	assert.False(t, Role("Admin").IsValid())
}
