package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerForm struct {
	Email     string `validate:"required,email"`
	Password  string `validate:"required,min=8"`
	FirstName string `validate:"required,max=100"`
	Role      string `validate:"omitempty,oneof=admin manager customer"`
}

func TestValidate_Valid(t *testing.T) {
	err := Validate(registerForm{
		Email:     "a@b.com",
		Password:  "password123",
		FirstName: "A",
		Role:      "customer",
	})
	assert.NoError(t, err)
}

func TestValidate_CollectsFieldErrors(t *testing.T) {
	err := Validate(registerForm{
		Email:    "not-an-email",
		Password: "short",
		Role:     "superuser",
	})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)

	fields := valErr.Fields()
	assert.Equal(t, "must be a valid email address", fields["Email"])
	assert.Equal(t, "must be at least 8 characters", fields["Password"])
	assert.Equal(t, "is required", fields["FirstName"])
	assert.Equal(t, "must be one of: admin manager customer", fields["Role"])
}

func TestValidationError_Message(t *testing.T) {
	err := Validate(registerForm{Email: "x", Password: "password123", FirstName: "A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Email' must be a valid email address")
}
