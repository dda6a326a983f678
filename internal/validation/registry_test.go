package validation

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richharbor/access-service/internal/domain"
)

func TestBuiltinSchemasLoad(t *testing.T) {
	reg, err := NewRegistry("")
	require.NoError(t, err)

	assert.Contains(t, reg.Keys(), UpgradeKey(domain.RolePartner))
	assert.Contains(t, reg.Keys(), UpgradeKey(domain.RoleReferralPartner))
	assert.Contains(t, reg.Keys(), StepKey(1))
}

func TestValidatePartnerBusinessData(t *testing.T) {
	reg, err := NewRegistry("")
	require.NoError(t, err)

	assert.NoError(t, reg.Validate(UpgradeKey(domain.RolePartner), map[string]any{"gst": "27AAAAA0000A1Z5"}))
	assert.NoError(t, reg.Validate(UpgradeKey(domain.RolePartner), map[string]any{"gst": "x", "unknownField": true}))

	err = reg.Validate(UpgradeKey(domain.RolePartner), map[string]any{"gst": 42})
	var vErr *Error
	require.True(t, errors.As(err, &vErr))
	require.Len(t, vErr.Issues, 1)
	assert.Equal(t, "gst", vErr.Issues[0].Field)
}

func TestValidateRequiredStepField(t *testing.T) {
	reg, err := NewRegistry("")
	require.NoError(t, err)

	err = reg.Validate(StepKey(1), map[string]any{})
	var vErr *Error
	require.True(t, errors.As(err, &vErr))
	assert.NotEmpty(t, vErr.Issues)

	assert.NoError(t, reg.Validate(StepKey(1), map[string]any{"fullName": "Asha"}))
}

func TestValidateUnknownKeyAccepts(t *testing.T) {
	reg, err := NewRegistry("")
	require.NoError(t, err)

	assert.NoError(t, reg.Validate(StepKey(9), map[string]any{"anything": 1}))

	var nilReg *Registry
	assert.NoError(t, nilReg.Validate(StepKey(1), nil))
}

func TestDirectoryOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "upgrade"), 0o755))
	schema := `{"type":"object","required":["licence"],"properties":{"licence":{"type":"string"}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "upgrade", "partner.json"), []byte(schema), 0o644))

	reg, err := NewRegistry(dir)
	require.NoError(t, err)

	assert.Error(t, reg.Validate(UpgradeKey(domain.RolePartner), map[string]any{"gst": "x"}))
	assert.NoError(t, reg.Validate(UpgradeKey(domain.RolePartner), map[string]any{"licence": "L-1"}))
}

func TestInvalidSchemaFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"type": 12}`), 0o644))

	_, err := NewRegistry(dir)
	assert.Error(t, err)
}
