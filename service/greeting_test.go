package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JuanCrzp/ClientCare/rules"
)

func TestBuildGreetingSubstitutesUser(t *testing.T) {
	r := &rules.ChatRules{GreetingText: "¡Hola {user}! ¿En qué te ayudo?"}
	assert.Equal(t, "¡Hola Ana! ¿En qué te ayudo?", BuildGreeting("Ana", r))
}

func TestBuildGreetingDefaultTemplate(t *testing.T) {
	g := BuildGreeting("u1", &rules.ChatRules{})
	assert.NotEmpty(t, g)
	assert.NotContains(t, g, "{user}")
}

func TestBuildGreetingDisabled(t *testing.T) {
	off := false
	r := &rules.ChatRules{GreetingEnabled: &off, GreetingText: "hola"}
	assert.Empty(t, BuildGreeting("u1", r))
}
