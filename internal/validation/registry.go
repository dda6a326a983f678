// Package validation checks free-form JSON payloads against JSON schemas.
package validation

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/richharbor/access-service/internal/domain"
)

//go:embed schemas
var builtin embed.FS

// Issue is one failed constraint.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error lists every issue found in a payload.
type Error struct {
	Key    string
	Issues []Issue
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Message)
	}
	return fmt.Sprintf("%s: %s", e.Key, strings.Join(parts, "; "))
}

// Registry holds compiled schemas keyed by "upgrade/<role>" or "onboarding/step<N>".
type Registry struct {
	schemas map[string]*gojsonschema.Schema
}

// UpgradeKey names the schema for business data of a requested role.
func UpgradeKey(role domain.PrimaryRole) string {
	return "upgrade/" + string(role)
}

// StepKey names the schema for an onboarding step payload.
func StepKey(step int) string {
	return fmt.Sprintf("onboarding/step%d", step)
}

// NewRegistry compiles the built-in schemas, then those under dir (if any),
// which replace built-ins with the same key.
func NewRegistry(dir string) (*Registry, error) {
	r := &Registry{schemas: map[string]*gojsonschema.Schema{}}

	sub, err := fs.Sub(builtin, "schemas")
	if err != nil {
		return nil, err
	}
	if err := r.load(sub); err != nil {
		return nil, fmt.Errorf("built-in schemas: %w", err)
	}
	if dir != "" {
		if err := r.load(os.DirFS(dir)); err != nil {
			return nil, fmt.Errorf("schemas in %s: %w", dir, err)
		}
	}
	return r, nil
}

func (r *Registry) load(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".json" {
			return nil
		}
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return fmt.Errorf("compile %s: %w", p, err)
		}
		r.schemas[strings.TrimSuffix(p, ".json")] = schema
		return nil
	})
}

// Keys lists the registered schema keys.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks data against the schema registered under key. Payloads
// without a registered schema are accepted.
func (r *Registry) Validate(key string, data map[string]any) error {
	if r == nil {
		return nil
	}
	schema, ok := r.schemas[key]
	if !ok {
		return nil
	}
	if data == nil {
		data = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return &Error{Key: key, Issues: []Issue{{Field: "(root)", Message: err.Error()}}}
	}
	if result.Valid() {
		return nil
	}

	issues := make([]Issue, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, Issue{Field: e.Field(), Message: e.Description()})
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].Field < issues[j].Field })
	return &Error{Key: key, Issues: issues}
}
