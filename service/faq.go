package service

import (
	"fmt"
	"strings"

	"github.com/JuanCrzp/ClientCare/rules"
	"github.com/JuanCrzp/ClientCare/utils"
)

// faqNormalize lowercases, strips question punctuation and collapses
// whitespace. Accents are kept; FAQ entries are matched as written.
func faqNormalize(s string) string {
	return utils.StripPunct(strings.ToLower(strings.TrimSpace(s)))
}

// MatchFaq resolves the user text against the rule-declared FAQ. An exact
// or keyword-in-input hit returns immediately; otherwise the best fuzzy
// score across all entries must clear the configured threshold.
//
// The substring check is deliberately one-directional (keyword inside the
// input): matching the input inside a keyword lets two-letter words hit
// unrelated longer entries.
func MatchFaq(text string, r *rules.ChatRules) (string, bool) {
	input := faqNormalize(text)
	if len([]rune(input)) <= 2 {
		return "", false
	}

	bestScore := 0.0
	bestAnswer := ""
	for _, entry := range r.Faq {
		candidates := make([]string, 0, 1+len(entry.Keywords))
		if q := faqNormalize(entry.Q); q != "" {
			candidates = append(candidates, q)
		}
		for _, kw := range entry.Keywords {
			if k := faqNormalize(kw); k != "" {
				candidates = append(candidates, k)
			}
		}
		for _, kw := range candidates {
			if kw == input || strings.Contains(input, kw) {
				return expandAuto(entry.A, r), true
			}
			score := utils.SequenceRatio(kw, input)
			if ov := utils.TokenOverlap(kw, input); ov > score {
				score = ov
			}
			if score > bestScore {
				bestScore = score
				bestAnswer = entry.A
			}
		}
	}

	if bestAnswer != "" && bestScore >= r.FaqThreshold() {
		return expandAuto(bestAnswer, r), true
	}
	return "", false
}

// expandAuto substitutes the {auto} placeholder with a generated summary of
// what the bot can currently do.
func expandAuto(answer string, r *rules.ChatRules) string {
	if !strings.Contains(answer, "{auto}") {
		return answer
	}
	return strings.ReplaceAll(answer, "{auto}", capabilitySummary(r))
}

// capabilitySummary lists the enabled capabilities in natural language plus
// up to three example questions. Entries whose answer contains {auto} are
// skipped as examples so the summary never describes itself.
func capabilitySummary(r *rules.ChatRules) string {
	var caps []string
	if r.FeatureEnabled("catalog") {
		caps = append(caps, "mostrarte el catálogo")
	}
	if r.HasDynamicMenus() {
		caps = append(caps, "guiarte por el menú de opciones")
	}
	if r.FeatureEnabled("tickets") {
		caps = append(caps, "abrir tickets de soporte")
	}
	if r.FeatureEnabled("faq") {
		caps = append(caps, "responder preguntas frecuentes")
	}
	if r.FeatureEnabled("escalation") {
		caps = append(caps, "derivarte con un agente")
	}

	summary := "Puedo ayudarte."
	if len(caps) > 0 {
		summary = "Puedo " + strings.Join(caps, ", ") + "."
	}

	var examples []string
	for _, entry := range r.Faq {
		if strings.Contains(entry.A, "{auto}") || strings.TrimSpace(entry.Q) == "" {
			continue
		}
		examples = append(examples, fmt.Sprintf("«%s»", entry.Q))
		if len(examples) == 3 {
			break
		}
	}
	if len(examples) > 0 {
		summary += " Por ejemplo, pregúntame: " + strings.Join(examples, ", ") + "."
	}
	return summary
}
