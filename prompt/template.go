// Package prompt holds the generation prompt templates and the
// variable substitution that turns one into a provider-ready prompt.
package prompt

import (
	"fmt"
	"regexp"
)

// MissingVariableError reports a required template variable that was
// absent from the bindings.
type MissingVariableError struct {
	TemplateID string
	Variable   string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("template %s: missing required variable %q", e.TemplateID, e.Variable)
}

// UnknownTemplateError reports a lookup for a template id that is not
// registered.
type UnknownTemplateError struct {
	TemplateID string
}

func (e *UnknownTemplateError) Error() string {
	return fmt.Sprintf("unknown template %q", e.TemplateID)
}

// requiredVars must be bound for every template; everything else is
// optional and unknown placeholders survive verbatim.
var requiredVars = []string{"category", "num_entries"}

var placeholderRe = regexp.MustCompile(`\{([a-z_][a-z0-9_]*)\}`)

var registry = map[string]string{
	"prompt_chit_chat":          chitChatTemplate,
	"prompt_space_chatter":      spaceChatterTemplate,
	"prompt_crew_chatter":       crewChatterTemplate,
	"prompt_deep_space_chatter": deepSpaceChatterTemplate,
}

// IDs returns the registered template ids.
func IDs() []string {
	out := make([]string, 0, len(registry))
	for id := range registry {
		out = append(out, id)
	}
	return out
}

// Render substitutes vars into the template named by id. Substitution
// is a single pass: a substituted value is never re-scanned for
// placeholders, and placeholders with no binding are left verbatim so
// newer template revisions keep working against older callers.
func Render(id string, vars map[string]string) (string, error) {
	tpl, ok := registry[id]
	if !ok {
		return "", &UnknownTemplateError{TemplateID: id}
	}
	for _, name := range requiredVars {
		if vars[name] == "" {
			return "", &MissingVariableError{TemplateID: id, Variable: name}
		}
	}
	return placeholderRe.ReplaceAllStringFunc(tpl, func(m string) string {
		name := m[1 : len(m)-1]
		if v, bound := vars[name]; bound {
			return v
		}
		return m
	}), nil
}
