package nlu

import (
	"github.com/JuanCrzp/ClientCare/rules"
	"github.com/JuanCrzp/ClientCare/utils"
)

// IntentMatch is the result of a successful classification.
type IntentMatch struct {
	Name   string
	Action string
	Score  float64
	Intent *rules.Intent
}

// Classifier is the shared contract of both strategies. A nil match with a
// zero score means "inconclusive"; it is never an error.
type Classifier interface {
	Classify(text string) (*IntentMatch, float64)
}

// PatternNLU scores the normalized input against each intent's example
// patterns by sequence similarity. The first-configured intent wins ties.
type PatternNLU struct {
	cfg       rules.NLU
	Threshold float64
}

func NewPatternNLU(cfg rules.NLU) *PatternNLU {
	th := cfg.Threshold
	if th <= 0 {
		th = 0.75
	}
	return &PatternNLU{cfg: cfg, Threshold: th}
}

func (n *PatternNLU) Classify(text string) (*IntentMatch, float64) {
	t := utils.NormalizeText(text)
	var best *IntentMatch
	bestScore := 0.0
	for i := range n.cfg.Intents {
		intent := &n.cfg.Intents[i]
		score := 0.0
		for _, p := range intent.Patterns {
			if r := utils.SequenceRatio(t, utils.NormalizeText(p)); r > score {
				score = r
			}
		}
		if score > bestScore {
			bestScore = score
			best = &IntentMatch{
				Name:   intent.Name,
				Action: intent.Action,
				Score:  score,
				Intent: intent,
			}
		}
	}
	return best, bestScore
}
