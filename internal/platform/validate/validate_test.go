// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "fullName", "Bob B", false},
		{"empty_string", "fullName", "", true},
		{"whitespace_only", "fullName", " \t ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, apperr.CodeValidation, ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_Email checks the email format validation rule.
*/
func TestValidator_Email(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		isValid bool
	}{
		{"valid_email", "bob@x.com", true},
		{"invalid_format", "invalid-email", false},
		{"missing_domain", "bob@", false},
		{"display_name_form", "Bob <bob@x.com>", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Email("email", tt.email)
			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_Equal covers password confirmation.
*/
func TestValidator_Equal(t *testing.T) {
	v := &validate.Validator{}
	v.Equal("confirmPassword", "Secret123!", "Secret123!", "Passwords do not match")
	assert.False(t, v.HasErrors())

	v.Equal("confirmPassword", "Secret123!", "secret123!", "Passwords do not match")
	require.Error(t, v.Err())
	assert.Equal(t, "Passwords do not match", apperr.As(v.Err()).Details[0].Message)
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("userName", "").           // Fails
		MaxLen("password", "abcdef", 3).    // Fails
		Email("email", "not-an-email").     // Fails
		MaxLen("fullName", "Bob B", 100).   // Passes
		Custom("avatar", true, "required"). // Fails
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Len(t, ae.Details, 4)
}
