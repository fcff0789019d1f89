package rules

import (
	"fmt"
	"os"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"
)

// Provider loads the rules file and resolves the effective rule set per
// chat. Merge semantics: the chat-keyed section overwrites top-level keys of
// the "default" section (shallow, not deep).
type Provider struct {
	path string

	mu       sync.RWMutex
	sections map[string]map[string]any
	resolved *gocache.Cache
}

func NewProvider(path string) (*Provider, error) {
	p := &Provider{
		path:     path,
		resolved: gocache.New(gocache.NoExpiration, 0),
	}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads the rules file and drops every resolved rule set.
func (p *Provider) Reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}
	var sections map[string]map[string]any
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return fmt.Errorf("parse rules file: %w", err)
	}
	p.mu.Lock()
	p.sections = sections
	p.mu.Unlock()
	p.resolved.Flush()
	return nil
}

// RulesFor returns the resolved rule set for chatID. An empty chatID, or a
// chat with no override section, yields the defaults.
func (p *Provider) RulesFor(chatID string) *ChatRules {
	key := chatID
	if key == "" {
		key = "default"
	}
	if v, ok := p.resolved.Get(key); ok {
		return v.(*ChatRules)
	}

	p.mu.RLock()
	base := p.sections["default"]
	override := p.sections[chatID]
	p.mu.RUnlock()

	merged := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	if chatID != "" && chatID != "default" {
		for k, v := range override {
			merged[k] = v
		}
	}

	r := decodeRules(merged)
	p.resolved.Set(key, r, gocache.NoExpiration)
	return r
}

// decodeRules round-trips the merged generic tree through YAML into the
// typed schema. Malformed sections fall back to zero values rather than
// failing the message.
func decodeRules(merged map[string]any) *ChatRules {
	r := &ChatRules{}
	data, err := yaml.Marshal(merged)
	if err != nil {
		return r
	}
	_ = yaml.Unmarshal(data, r)
	return r
}
