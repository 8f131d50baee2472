package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseVars() map[string]string {
	return map[string]string{
		"category":    "chit_chat",
		"num_entries": "2",
	}
}

func TestRenderSubstitutesVariables(t *testing.T) {
	vars := baseVars()
	vars["data"] = "Commander Name: Jameson"
	out, err := Render("prompt_chit_chat", vars)
	require.NoError(t, err)
	assert.Contains(t, out, "Generate exactly 2 casual chit_chat phrases")
	assert.Contains(t, out, "Commander Name: Jameson")
}

func TestRenderMissingRequiredVariable(t *testing.T) {
	_, err := Render("prompt_chit_chat", map[string]string{"category": "chit_chat"})
	var missing *MissingVariableError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "num_entries", missing.Variable)
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render("prompt_bogus", baseVars())
	var unknown *UnknownTemplateError
	assert.ErrorAs(t, err, &unknown)
}

func TestRenderUnboundPlaceholdersLeftVerbatim(t *testing.T) {
	out, err := Render("prompt_chit_chat", baseVars())
	require.NoError(t, err)
	// No personalization bindings supplied: placeholders survive.
	assert.Contains(t, out, "{data}")
	assert.Contains(t, out, "{rss_summary}")
}

func TestRenderSingleLevelSubstitution(t *testing.T) {
	vars := baseVars()
	vars["data"] = "value containing {rss_summary} placeholder"
	vars["rss_summary"] = "SHOULD NOT EXPAND INSIDE DATA"
	out, err := Render("prompt_chit_chat", vars)
	require.NoError(t, err)
	// The substituted value is not re-scanned.
	assert.Contains(t, out, "value containing {rss_summary} placeholder")
}

func TestAllTemplatesRender(t *testing.T) {
	vars := map[string]string{
		"category":               "space_chatter",
		"num_entries":            "30",
		"data":                   "d",
		"themes":                 "t",
		"conversation_styles":    "c",
		"rss_summary":            "r",
		"personalization_chance": "25",
		"rss_chance":             "15",
		"conditionals_chance":    "10",
	}
	for _, id := range IDs() {
		out, err := Render(id, vars)
		require.NoError(t, err, id)
		assert.NotContains(t, out, "{num_entries}", id)
		assert.False(t, strings.Contains(out, "{personalization_chance}"), id)
	}
}
