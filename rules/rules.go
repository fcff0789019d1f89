package rules

import (
	"strings"
)

// ChatRules is the resolved rule set for one chat: the "default" section of
// the rules file overlaid with the chat-specific section, if any.
type ChatRules struct {
	Menus      Menus               `yaml:"menus"`
	Faq        []FaqEntry          `yaml:"faq"`
	Synonyms   map[string][]string `yaml:"synonyms"`
	Features   map[string]Feature  `yaml:"features"`
	NLU        NLU                 `yaml:"nlu"`
	Tickets    Tickets             `yaml:"tickets"`
	Escalation Escalation          `yaml:"escalation"`
	Memory     Memory              `yaml:"memory"`
	RateLimit  RateLimit           `yaml:"rate_limit"`

	GreetingEnabled             *bool    `yaml:"greeting_enabled"`
	GreetingText                string   `yaml:"greeting_text"`
	GreetingForceOnFirstMessage bool     `yaml:"greeting_force_on_first_message"`
	GreetingMenuPromptEnabled   *bool    `yaml:"greeting_menu_prompt_enabled"`
	GreetingMenuPromptText      string   `yaml:"greeting_menu_prompt_text"`
	GreetingMenuPromptDelay     Duration `yaml:"greeting_menu_prompt_delay"`

	FallbackText string `yaml:"fallback_text"`
	MenuText     string `yaml:"menu_text"`
	FaqMenuText  string `yaml:"faq_menu_text"`
}

type Menus struct {
	Root    string          `yaml:"root"`
	Enabled *bool           `yaml:"enabled"`
	Items   map[string]Menu `yaml:"items"`
}

type Menu struct {
	Text    string   `yaml:"text"`
	Options []Option `yaml:"options"`
	Enabled *bool    `yaml:"enabled"`
}

type Option struct {
	Triggers  []string `yaml:"triggers"`
	Action    string   `yaml:"action"`
	Target    string   `yaml:"target"`
	ReplyText string   `yaml:"reply_text"`
	Responses []string `yaml:"responses"`
	Enabled   *bool    `yaml:"enabled"`
}

type FaqEntry struct {
	Q        string   `yaml:"q"`
	A        string   `yaml:"a"`
	Keywords []string `yaml:"keywords"`
}

type Feature struct {
	Enabled        *bool   `yaml:"enabled"`
	MatchThreshold float64 `yaml:"match_threshold"`
}

type NLU struct {
	Provider             string    `yaml:"provider"`
	Threshold            float64   `yaml:"threshold"`
	Greetings            Greetings `yaml:"greetings"`
	LowConfidenceMessage string    `yaml:"low_confidence_message"`
	Intents              []Intent  `yaml:"intents"`
	ML                   MLConfig  `yaml:"ml"`
}

type Greetings struct {
	Enabled  *bool    `yaml:"enabled"`
	Triggers []string `yaml:"triggers"`
}

type Intent struct {
	Name      string   `yaml:"name"`
	Patterns  []string `yaml:"patterns"`
	Action    string   `yaml:"action"`
	Target    string   `yaml:"target"`
	ReplyText string   `yaml:"reply_text"`
	Responses []string `yaml:"responses"`
}

type MLConfig struct {
	RetrainOnStart bool    `yaml:"retrain_on_start"`
	ModelPath      string  `yaml:"model_path"`
	CharNgMin      int     `yaml:"char_ng_min"`
	CharNgMax      int     `yaml:"char_ng_max"`
	WordNgMin      int     `yaml:"word_ng_min"`
	WordNgMax      int     `yaml:"word_ng_max"`
	Alpha          float64 `yaml:"alpha"`
}

type Tickets struct {
	MessageAskDetail string `yaml:"message_ask_detail"`
	MessageOpened    string `yaml:"message_opened"`
}

type Escalation struct {
	Message string `yaml:"message"`
}

type Memory struct {
	HistoryMax         int        `yaml:"history_max"`
	ResumeAfter        Duration   `yaml:"resume_after"`
	ResumeAfterMinutes int        `yaml:"resume_after_minutes"`
	OfferResumeMessage string     `yaml:"offer_resume_message"`
	TopicTTLDays       int        `yaml:"topic_ttl_days"`
	Inactivity         Inactivity `yaml:"inactivity"`
}

type Inactivity struct {
	Enabled          *bool    `yaml:"enabled"`
	ReminderAfter    Duration `yaml:"reminder_after"`
	CloseAfter       Duration `yaml:"close_after"`
	ReminderMessage  string   `yaml:"reminder_message"`
	CloseMessage     string   `yaml:"close_message"`
	SendReminderOnce *bool    `yaml:"send_reminder_once"`
	MonitorStates    []string `yaml:"monitor_states"`
}

type RateLimit struct {
	PerUserPerMinute int    `yaml:"per_user_per_minute"`
	Message          string `yaml:"message"`
}

// Defaults used when the rule file leaves a field empty.
const (
	DefaultFallbackText  = "No entendí tu mensaje."
	DefaultMenuText      = "Escribe tu consulta."
	DefaultAskDetail     = "Por favor, cuéntame brevemente el problema."
	DefaultEscalation    = "Te voy a derivar con un agente."
	DefaultFaqMenuText   = "Submenú FAQ:\n- Escribe una palabra clave, p.ej. 'precios', 'planes'\n- Escribe 'menu' para volver"
	DefaultLowConfidence = "Puedo ayudarte con: menú, tickets o un agente. ¿Qué prefieres?"
	DefaultHistoryMax    = 100
)

func enabledOrTrue(b *bool) bool { return b == nil || *b }

// FeatureEnabled reports whether a feature toggle is on. Missing features
// default to enabled.
func (r *ChatRules) FeatureEnabled(name string) bool {
	f, ok := r.Features[name]
	if !ok {
		return true
	}
	return enabledOrTrue(f.Enabled)
}

// FaqThreshold is the minimum fuzzy score for a FAQ answer.
func (r *ChatRules) FaqThreshold() float64 {
	if f, ok := r.Features["faq"]; ok && f.MatchThreshold > 0 {
		return f.MatchThreshold
	}
	return 0.75
}

func (r *ChatRules) MenusEnabled() bool { return enabledOrTrue(r.Menus.Enabled) }

// HasDynamicMenus reports whether any dynamic menu items are configured.
func (r *ChatRules) HasDynamicMenus() bool {
	return r.MenusEnabled() && len(r.Menus.Items) > 0
}

func (r *ChatRules) RootMenuID() string {
	if r.Menus.Root != "" {
		return r.Menus.Root
	}
	return "main"
}

// MenuItem returns the menu with the given id, treating disabled menus as
// absent.
func (r *ChatRules) MenuItem(id string) (Menu, bool) {
	m, ok := r.Menus.Items[id]
	if !ok || !enabledOrTrue(m.Enabled) {
		return Menu{}, false
	}
	return m, true
}

// MenuTextFor is the display text of a menu, falling back to the static
// menu text when the menu is missing, disabled or textless.
func (r *ChatRules) MenuTextFor(id string) string {
	if m, ok := r.MenuItem(id); ok && m.Text != "" {
		return m.Text
	}
	return r.StaticMenuText()
}

// ActiveOptions returns the options of a menu with disabled entries removed.
func (r *ChatRules) ActiveOptions(id string) []Option {
	m, ok := r.MenuItem(id)
	if !ok {
		return nil
	}
	out := make([]Option, 0, len(m.Options))
	for _, o := range m.Options {
		if enabledOrTrue(o.Enabled) {
			out = append(out, o)
		}
	}
	return out
}

func (r *ChatRules) Fallback() string {
	if r.FallbackText != "" {
		return r.FallbackText
	}
	return DefaultFallbackText
}

func (r *ChatRules) StaticMenuText() string {
	if r.MenuText != "" {
		return r.MenuText
	}
	return DefaultMenuText
}

func (r *ChatRules) FaqSubmenuText() string {
	if r.FaqMenuText != "" {
		return r.FaqMenuText
	}
	return DefaultFaqMenuText
}

func (r *ChatRules) AskDetailText() string {
	if r.Tickets.MessageAskDetail != "" {
		return r.Tickets.MessageAskDetail
	}
	return DefaultAskDetail
}

func (r *ChatRules) EscalationMessage() string {
	if r.Escalation.Message != "" {
		return r.Escalation.Message
	}
	return DefaultEscalation
}

func (r *ChatRules) LowConfidenceMessage() string {
	if r.NLU.LowConfidenceMessage != "" {
		return r.NLU.LowConfidenceMessage
	}
	return DefaultLowConfidence
}

func (r *ChatRules) HistoryMax() int {
	if r.Memory.HistoryMax > 0 {
		return r.Memory.HistoryMax
	}
	return DefaultHistoryMax
}

// ResumeAfterSeconds is the idle gap before an open topic is offered for
// resumption. Defaults to one hour.
func (r *ChatRules) ResumeAfterSeconds() int {
	if s := r.Memory.ResumeAfter.Seconds("m"); s > 0 {
		return s
	}
	if r.Memory.ResumeAfterMinutes > 0 {
		return r.Memory.ResumeAfterMinutes * 60
	}
	return 3600
}

func (r *ChatRules) NLUThreshold() float64 {
	if r.NLU.Threshold > 0 {
		return r.NLU.Threshold
	}
	return 0.75
}

func (r *ChatRules) GreetingsEnabled() bool { return enabledOrTrue(r.NLU.Greetings.Enabled) }

// IsGreetingTrigger reports whether the normalized text equals one of the
// configured greeting triggers.
func (r *ChatRules) IsGreetingTrigger(text string) bool {
	if !r.GreetingsEnabled() {
		return false
	}
	t := strings.TrimSpace(strings.ToLower(text))
	for _, trig := range r.NLU.Greetings.Triggers {
		if t == strings.ToLower(trig) {
			return true
		}
	}
	return false
}

// MatchesSynonym reports whether any word of the named synonym list occurs
// inside the lowercased text.
func (r *ChatRules) MatchesSynonym(list, text string) bool {
	t := strings.ToLower(text)
	for _, w := range r.Synonyms[list] {
		if w != "" && strings.Contains(t, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// MonitorStates are the states watched by the inactivity policy.
func (i Inactivity) WatchedStates() []string {
	if len(i.MonitorStates) > 0 {
		return i.MonitorStates
	}
	return []string{"ticket:ask_detail"}
}

func (i Inactivity) On() bool { return enabledOrTrue(i.Enabled) }

func (i Inactivity) ReminderOnce() bool { return enabledOrTrue(i.SendReminderOnce) }
