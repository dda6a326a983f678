package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionsUnmarshalStoredForms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Permissions
	}{
		{name: "array grants full", raw: `["leads", "orders"]`, want: Permissions{"leads": LevelFull, "orders": LevelFull}},
		{name: "booleans", raw: `{"leads": true, "orders": false}`, want: Permissions{"leads": LevelFull, "orders": LevelNone}},
		{name: "level strings", raw: `{"portfolio": "read", "orders": "WRITE", "leads": " full "}`, want: Permissions{"portfolio": LevelRead, "orders": LevelWrite, "leads": LevelFull}},
		{name: "mixed object", raw: `{"leads": true, "orders": "none"}`, want: Permissions{"leads": LevelFull, "orders": LevelNone}},
		{name: "empty object", raw: `{}`, want: Permissions{}},
		{name: "empty array", raw: `[]`, want: Permissions{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Permissions
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPermissionsUnmarshalNull(t *testing.T) {
	p := Permissions{"leads": LevelFull}
	require.NoError(t, p.UnmarshalJSON([]byte("null")))
	assert.Empty(t, p)
}

func TestPermissionsUnmarshalRejectsUnknownValues(t *testing.T) {
	for _, raw := range []string{
		`{"x": "bogus"}`,
		`[""]`,
		`["  "]`,
		`{"x": 3}`,
		`{"x": ["read"]}`,
		`[1, 2]`,
		`"full"`,
	} {
		t.Run(raw, func(t *testing.T) {
			var got Permissions
			assert.Error(t, json.Unmarshal([]byte(raw), &got))
		})
	}
}

func TestPermissionsRoundTripThroughLevelNames(t *testing.T) {
	perms := Permissions{"leads": LevelWrite, "orders": LevelFull}
	raw, err := json.Marshal(perms)
	require.NoError(t, err)
	assert.JSONEq(t, `{"leads": "write", "orders": "full"}`, string(raw))
}

func TestPermissionsAllowsAndMerge(t *testing.T) {
	perms := Permissions{"portfolio": LevelRead, "orders": LevelNone}
	assert.True(t, perms.Allows("portfolio", LevelRead))
	assert.False(t, perms.Allows("portfolio", LevelWrite))
	assert.False(t, perms.Allows("orders", LevelNone))
	assert.False(t, perms.Allows("leads", LevelRead))

	perms.Merge(Permissions{"portfolio": LevelFull, "orders": LevelRead, "leads": LevelWrite})
	perms.Merge(Permissions{"portfolio": LevelRead})
	assert.Equal(t, Permissions{"portfolio": LevelFull, "orders": LevelRead, "leads": LevelWrite}, perms)
	assert.Equal(t, []string{"leads", "orders", "portfolio"}, perms.Capabilities())
}

func TestLadderIsUpgrade(t *testing.T) {
	assert.True(t, DefaultLadder.IsUpgrade(RoleCustomer, RolePartner))
	assert.True(t, DefaultLadder.IsUpgrade(RoleCustomer, RoleReferralPartner))
	assert.False(t, DefaultLadder.IsUpgrade(RolePartner, RoleCustomer))
	assert.False(t, DefaultLadder.IsUpgrade(RolePartner, RolePartner))
	assert.False(t, DefaultLadder.IsUpgrade(RoleCustomer, RoleAdmin))
	assert.Equal(t, RolePartner, DefaultLadder.Top())
}

func TestLeadTypeIncentives(t *testing.T) {
	assert.False(t, LeadType("warm").Valid())
	assert.Nil(t, LeadTypeSelf.ExpectedPayout())
	require.NotNil(t, LeadTypeCold.ExpectedPayout())
	assert.Equal(t, "Up to 25% payout", *LeadTypeCold.ExpectedPayout())
	assert.Equal(t, "Cash payout + contests", LeadTypePartner.Incentive())
}
