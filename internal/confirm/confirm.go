// Package confirm builds the deterministic confirmation tokens a caller must
// echo back before an irreversible schema change is applied.
package confirm

import (
	"fmt"
	"strings"
)

// ActionRequire is the confirmation action for a field changing from optional
// to required.
const ActionRequire = "REQUIRE"

// TokenSpec names the change a token confirms. Field is empty for model-level
// actions.
type TokenSpec struct {
	Action string
	Model  string
	Field  string
}

// BuildToken formats a confirmation token as `ACTION "model"` or
// `ACTION "model"."field"`. Model and field names are escaped so the token is
// unambiguous even for hostile names.
func BuildToken(spec TokenSpec) string {
	if spec.Field == "" {
		return fmt.Sprintf(`%s "%s"`, spec.Action, escape(spec.Model))
	}
	return fmt.Sprintf(`%s "%s"."%s"`, spec.Action, escape(spec.Model), escape(spec.Field))
}

// escape backslash-escapes the characters that would break the quoted token
// format. Backslashes first so escaped quotes are not double-escaped.
func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
