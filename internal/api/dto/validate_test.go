package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

func strPtr(s string) *string { return &s }

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.ErrorIs(t, err, apperrors.ErrValidation)
	domainErr := apperrors.ToDomainError(err)
	fields, ok := domainErr.Details["fields"].(map[string]string)
	require.True(t, ok)
	return fields
}

func TestValidateRegisterNeedsEmailOrPhone(t *testing.T) {
	fields := fieldsOf(t, Validate(&UserRegisterRequest{Name: "Ana", Password: "password123"}))
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "phone")
	assert.NotContains(t, fields, "password")

	assert.NoError(t, Validate(&UserRegisterRequest{Name: "Ana", Phone: strPtr("+15550100"), Password: "password123"}))
}

func TestValidateUsesJSONNames(t *testing.T) {
	fields := fieldsOf(t, Validate(&UserRegisterRequest{Name: "Ana", Email: strPtr("not-an-email"), Password: "short"}))
	assert.Equal(t, "Invalid email format", fields["email"])
	assert.Equal(t, "Minimum length is 8", fields["password"])
}

func TestValidateFranchiseStatus(t *testing.T) {
	fields := fieldsOf(t, Validate(&FranchiseStatusRequest{Status: "closed"}))
	assert.Equal(t, "Must be one of: pending, active, suspended", fields["status"])

	assert.NoError(t, Validate(&FranchiseStatusRequest{Status: "active"}))
}

func TestValidateRoleStatusRequiresFlag(t *testing.T) {
	fields := fieldsOf(t, Validate(&RoleStatusRequest{}))
	assert.Contains(t, fields, "is_active")

	inactive := false
	assert.NoError(t, Validate(&RoleStatusRequest{IsActive: &inactive}))
}
