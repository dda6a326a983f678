package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// PermissionLevel orders capability grants.
type PermissionLevel int

const (
	LevelNone PermissionLevel = iota
	LevelRead
	LevelWrite
	LevelFull
)

var levelNames = map[PermissionLevel]string{
	LevelNone:  "none",
	LevelRead:  "read",
	LevelWrite: "write",
	LevelFull:  "full",
}

func (l PermissionLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParsePermissionLevel accepts none, read, write or full (case-insensitive).
func ParsePermissionLevel(raw string) (PermissionLevel, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for level, name := range levelNames {
		if name == normalized {
			return level, nil
		}
	}
	return LevelNone, fmt.Errorf("unknown permission level %q", raw)
}

// Permissions maps capability names to levels.
type Permissions map[string]PermissionLevel

// Allows reports whether capability is granted at min or above.
func (p Permissions) Allows(capability string, min PermissionLevel) bool {
	level, ok := p[capability]
	if !ok {
		return false
	}
	return level >= min && level > LevelNone
}

// Merge folds other into p; the highest level per capability wins.
func (p Permissions) Merge(other Permissions) {
	for capability, level := range other {
		if current, ok := p[capability]; !ok || level > current {
			p[capability] = level
		}
	}
}

// Capabilities returns the granted capability names, sorted.
func (p Permissions) Capabilities() []string {
	names := make([]string, 0, len(p))
	for name, level := range p {
		if level > LevelNone {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (p Permissions) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(p))
	for capability, level := range p {
		out[capability] = level.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the stored forms: an array of capability names (each
// granted full), or an object whose values are booleans or level strings.
func (p *Permissions) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	result := Permissions{}

	switch {
	case bytes.Equal(trimmed, []byte("null")):
	case len(trimmed) > 0 && trimmed[0] == '[':
		var names []string
		if err := json.Unmarshal(trimmed, &names); err != nil {
			return fmt.Errorf("permissions: %w", err)
		}
		for _, name := range names {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("permissions: empty capability name")
			}
			result[name] = LevelFull
		}
	default:
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("permissions: %w", err)
		}
		for capability, value := range raw {
			level, err := parseLevelValue(value)
			if err != nil {
				return fmt.Errorf("permissions: %s: %w", capability, err)
			}
			result[capability] = level
		}
	}

	*p = result
	return nil
}

func parseLevelValue(value json.RawMessage) (PermissionLevel, error) {
	var flag bool
	if err := json.Unmarshal(value, &flag); err == nil {
		if flag {
			return LevelFull, nil
		}
		return LevelNone, nil
	}
	var name string
	if err := json.Unmarshal(value, &name); err != nil {
		return LevelNone, fmt.Errorf("unsupported value %s", string(value))
	}
	return ParsePermissionLevel(name)
}

// Role is a named permission bundle, global when FranchiseID is nil.
type Role struct {
	ID          string
	Name        string
	Description string
	Permissions Permissions
	IsActive    bool
	FranchiseID *string
	CreatedBy   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserRole assigns a role to a user within a franchise scope.
type UserRole struct {
	ID          string
	UserID      string
	RoleID      string
	IsActive    bool
	IsPrimary   bool
	FranchiseID *string
	AssignedAt  time.Time
	AssignedBy  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoleAssignment is a UserRole joined with its Role.
type RoleAssignment struct {
	UserRole
	Role Role
}

// ActiveRole is one contributing row of a resolution.
type ActiveRole struct {
	UserRoleID  string
	RoleID      string
	Name        string
	FranchiseID *string
	IsPrimary   bool
	AssignedAt  time.Time
}

// ResolvedRoles is the effective role set of a user in a scope.
type ResolvedRoles struct {
	UserID      string
	FranchiseID *string
	PrimaryRole *ActiveRole
	ActiveRoles []ActiveRole
	Permissions Permissions
}
