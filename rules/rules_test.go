package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func boolPtr(b bool) *bool { return &b }

func TestFeatureEnabled(t *testing.T) {
	r := &ChatRules{Features: map[string]Feature{
		"faq":     {Enabled: boolPtr(true)},
		"tickets": {Enabled: boolPtr(false)},
		"catalog": {},
	}}
	assert.True(t, r.FeatureEnabled("faq"))
	assert.False(t, r.FeatureEnabled("tickets"))
	assert.True(t, r.FeatureEnabled("catalog"))
	assert.True(t, r.FeatureEnabled("unknown"))
}

func TestFaqThreshold(t *testing.T) {
	r := &ChatRules{}
	assert.Equal(t, 0.75, r.FaqThreshold())

	r.Features = map[string]Feature{"faq": {MatchThreshold: 0.9}}
	assert.Equal(t, 0.9, r.FaqThreshold())
}

func TestMenuHelpers(t *testing.T) {
	r := &ChatRules{Menus: Menus{
		Root: "main",
		Items: map[string]Menu{
			"main": {
				Text: "elige una opción",
				Options: []Option{
					{Triggers: []string{"1"}, Action: "faq_mode"},
					{Triggers: []string{"2"}, Action: "escalation", Enabled: boolPtr(false)},
				},
			},
			"oculto": {Text: "no debería verse", Enabled: boolPtr(false)},
		},
	}}

	assert.True(t, r.HasDynamicMenus())
	assert.Equal(t, "main", r.RootMenuID())
	assert.Equal(t, "elige una opción", r.MenuTextFor("main"))

	opts := r.ActiveOptions("main")
	assert.Len(t, opts, 1)
	assert.Equal(t, "faq_mode", opts[0].Action)

	_, ok := r.MenuItem("oculto")
	assert.False(t, ok)

	r.Menus.Enabled = boolPtr(false)
	assert.False(t, r.HasDynamicMenus())
}

func TestMenuTextForFallsBackToStatic(t *testing.T) {
	r := &ChatRules{MenuText: "Escribe tu consulta aquí."}
	assert.Equal(t, "Escribe tu consulta aquí.", r.MenuTextFor("desconocido"))
}

func TestTextDefaults(t *testing.T) {
	r := &ChatRules{}
	assert.Equal(t, DefaultFallbackText, r.Fallback())
	assert.Equal(t, DefaultMenuText, r.StaticMenuText())
	assert.Equal(t, DefaultAskDetail, r.AskDetailText())
	assert.Equal(t, DefaultEscalation, r.EscalationMessage())
	assert.Equal(t, DefaultLowConfidence, r.LowConfidenceMessage())
	assert.Equal(t, DefaultHistoryMax, r.HistoryMax())
	assert.Equal(t, 0.75, r.NLUThreshold())

	r.FallbackText = "ni idea"
	assert.Equal(t, "ni idea", r.Fallback())
}

func TestResumeAfterSeconds(t *testing.T) {
	r := &ChatRules{}
	assert.Equal(t, 3600, r.ResumeAfterSeconds())

	r.Memory.ResumeAfterMinutes = 15
	assert.Equal(t, 900, r.ResumeAfterSeconds())

	r.Memory.ResumeAfter = Dur("90m")
	assert.Equal(t, 5400, r.ResumeAfterSeconds())
}

func TestIsGreetingTrigger(t *testing.T) {
	r := &ChatRules{NLU: NLU{Greetings: Greetings{Triggers: []string{"hola", "buenas"}}}}
	assert.True(t, r.IsGreetingTrigger("Hola"))
	assert.True(t, r.IsGreetingTrigger("  buenas "))
	assert.False(t, r.IsGreetingTrigger("hola quiero un ticket"))

	r.NLU.Greetings.Enabled = boolPtr(false)
	assert.False(t, r.IsGreetingTrigger("hola"))
}

func TestMatchesSynonym(t *testing.T) {
	r := &ChatRules{Synonyms: map[string][]string{
		"ticket": {"ticket", "soporte", "reclamo"},
	}}
	assert.True(t, r.MatchesSynonym("ticket", "quiero abrir un TICKET"))
	assert.True(t, r.MatchesSynonym("ticket", "necesito soporte urgente"))
	assert.False(t, r.MatchesSynonym("ticket", "hola"))
	assert.False(t, r.MatchesSynonym("desconocido", "hola"))
}

func TestInactivityDefaults(t *testing.T) {
	var i Inactivity
	assert.True(t, i.On())
	assert.True(t, i.ReminderOnce())
	assert.Equal(t, []string{"ticket:ask_detail"}, i.WatchedStates())

	i.MonitorStates = []string{"menu:dyn"}
	assert.Equal(t, []string{"menu:dyn"}, i.WatchedStates())
}

func TestDurationYAML(t *testing.T) {
	var cfg struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
		C Duration `yaml:"c"`
	}
	err := yaml.Unmarshal([]byte("a: \"1h30m\"\nb: 45\nc: 2 dias\n"), &cfg)
	assert.NoError(t, err)
	assert.Equal(t, 5400, cfg.A.Seconds("m"))
	assert.Equal(t, 2700, cfg.B.Seconds("m"))
	assert.Equal(t, 2*86400, cfg.C.Seconds("m"))
	assert.True(t, Duration{}.IsZero())
}
