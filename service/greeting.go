package service

import (
	"strings"

	"github.com/JuanCrzp/ClientCare/rules"
)

const defaultGreeting = "¡Hola {user}! Soy tu asistente virtual de atención al cliente.\n" +
	"Estoy aquí para ayudarte: puedes consultar el FAQ, abrir un ticket o hablar con un agente."

// BuildGreeting renders the configured greeting for a user, or "" when
// greetings are turned off. {user} is substituted in the template.
func BuildGreeting(user string, r *rules.ChatRules) string {
	if r.GreetingEnabled != nil && !*r.GreetingEnabled {
		return ""
	}
	tpl := r.GreetingText
	if strings.TrimSpace(tpl) == "" {
		tpl = defaultGreeting
	}
	return strings.TrimSpace(strings.ReplaceAll(tpl, "{user}", user))
}
