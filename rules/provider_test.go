package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRules = `
default:
  fallback_text: "No entendí tu mensaje."
  features:
    faq: { enabled: true }
  synonyms:
    menu: ["menu", "opciones"]
  nlu:
    threshold: 0.75

chat-vip:
  fallback_text: "Disculpa, ¿puedes reformular?"
  synonyms:
    menu: ["carta"]
`

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProviderDefaults(t *testing.T) {
	p, err := NewProvider(writeRules(t, sampleRules))
	require.NoError(t, err)

	r := p.RulesFor("")
	assert.Equal(t, "No entendí tu mensaje.", r.Fallback())
	assert.Equal(t, 0.75, r.NLUThreshold())
	assert.True(t, r.FeatureEnabled("faq"))
}

func TestProviderShallowMerge(t *testing.T) {
	p, err := NewProvider(writeRules(t, sampleRules))
	require.NoError(t, err)

	r := p.RulesFor("chat-vip")
	assert.Equal(t, "Disculpa, ¿puedes reformular?", r.Fallback())
	// Untouched top-level keys come from default.
	assert.Equal(t, 0.75, r.NLUThreshold())
	// Overridden top-level keys replace the default wholesale.
	assert.Equal(t, []string{"carta"}, r.Synonyms["menu"])

	// Unknown chats fall back to the defaults.
	other := p.RulesFor("chat-unknown")
	assert.Equal(t, "No entendí tu mensaje.", other.Fallback())
}

func TestProviderResolvedCache(t *testing.T) {
	p, err := NewProvider(writeRules(t, sampleRules))
	require.NoError(t, err)

	a := p.RulesFor("chat-vip")
	b := p.RulesFor("chat-vip")
	assert.Same(t, a, b)
}

func TestProviderReload(t *testing.T) {
	path := writeRules(t, sampleRules)
	p, err := NewProvider(path)
	require.NoError(t, err)
	assert.Equal(t, "No entendí tu mensaje.", p.RulesFor("").Fallback())

	require.NoError(t, os.WriteFile(path, []byte("default:\n  fallback_text: \"nuevo\"\n"), 0o644))
	require.NoError(t, p.Reload())
	assert.Equal(t, "nuevo", p.RulesFor("").Fallback())
}

func TestProviderMissingFile(t *testing.T) {
	_, err := NewProvider(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
