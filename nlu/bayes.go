package nlu

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JuanCrzp/ClientCare/rules"
	"github.com/JuanCrzp/ClientCare/utils"
)

const (
	modelVersion = 1

	defaultCharNgMin = 3
	defaultCharNgMax = 5
	defaultWordNgMin = 1
	defaultWordNgMax = 2
	defaultAlpha     = 1.0

	// Confidence discount applied when the winning class matched fewer
	// than two vocabulary features.
	sparseEvidenceDiscount = 0.85
)

// ErrNotEnoughLabels is returned by Train when fewer than two intents carry
// example patterns; a one-class model cannot discriminate.
var ErrNotEnoughLabels = errors.New("nlu: need at least 2 labeled intents to train")

// BayesNLU is a multinomial Naive Bayes classifier over character and word
// n-grams of the normalized text, trained from the rule-declared intents
// and persisted as a JSON artifact. All artifact I/O failures are logged
// and swallowed; without a model every Classify returns (nil, 0).
type BayesNLU struct {
	cfg       rules.NLU
	modelPath string
	log       *zap.SugaredLogger

	mu    sync.RWMutex
	model *bayesModel
}

type bayesModel struct {
	Labels      []string                      `json:"labels"`
	Vocab       map[string]int                `json:"vocab"`
	LogProbs    map[string]map[string]float64 `json:"log_probs"`
	LogPriors   map[string]float64            `json:"logpriors"`
	ClassTotals map[string]int                `json:"class_totals"`
	CharNg      [2]int                        `json:"char_ng"`
	WordNg      [2]int                        `json:"word_ng"`
	Alpha       float64                       `json:"alpha"`
	Meta        ModelMeta                     `json:"meta"`
}

// ModelMeta describes how and from what corpus a model was built.
type ModelMeta struct {
	CreatedAt        string         `json:"created_at"`
	ExamplesTotal    int            `json:"examples_total"`
	LabelsTotal      int            `json:"labels_total"`
	ExamplesPerLabel map[string]int `json:"examples_per_label"`
	VocabSize        int            `json:"vocab_size"`
	Checksum         string         `json:"checksum"`
	Version          int            `json:"version"`
}

// NewBayesNLU builds the classifier. Retrains when retrain_on_start is set
// or no artifact exists on disk; otherwise the persisted model is loaded.
func NewBayesNLU(cfg rules.NLU, dataDir string, log *zap.SugaredLogger) *BayesNLU {
	path := cfg.ML.ModelPath
	if path == "" {
		path = filepath.Join(dataDir, "models", "nlu_model.json")
	}
	n := &BayesNLU{cfg: cfg, modelPath: path, log: log}

	_, statErr := os.Stat(path)
	if cfg.ML.RetrainOnStart || statErr != nil {
		if err := n.Train(); err != nil {
			n.log.Warnw("nlu model training skipped", "err", err)
		}
	} else if err := n.load(); err != nil {
		n.log.Warnw("nlu model load failed, classifier degraded", "path", path, "err", err)
	}
	return n
}

// ModelPath is where the artifact is persisted.
func (n *BayesNLU) ModelPath() string { return n.modelPath }

// Ready reports whether a trained model is available.
func (n *BayesNLU) Ready() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.model != nil
}

// Info returns the current model's labels, vocabulary size and metadata.
func (n *BayesNLU) Info() (labels []string, vocabSize int, meta ModelMeta, ok bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.model == nil {
		return nil, 0, ModelMeta{}, false
	}
	return n.model.Labels, len(n.model.Vocab), n.model.Meta, true
}

func (n *BayesNLU) ngRanges() (cMin, cMax, wMin, wMax int) {
	cMin, cMax = n.cfg.ML.CharNgMin, n.cfg.ML.CharNgMax
	if cMin <= 0 {
		cMin = defaultCharNgMin
	}
	if cMax < cMin {
		cMax = defaultCharNgMax
	}
	wMin, wMax = n.cfg.ML.WordNgMin, n.cfg.ML.WordNgMax
	if wMin <= 0 {
		wMin = defaultWordNgMin
	}
	if wMax < wMin {
		wMax = defaultWordNgMax
	}
	return
}

func (n *BayesNLU) alpha() float64 {
	if n.cfg.ML.Alpha > 0 {
		return n.cfg.ML.Alpha
	}
	return defaultAlpha
}

// extractFeatures returns the family-prefixed n-gram features of the
// normalized text. The "c:" and "w:" prefixes keep the two feature spaces
// disjoint.
func extractFeatures(text string, cMin, cMax, wMin, wMax int) []string {
	t := utils.NormalizeText(text)
	if t == "" {
		return nil
	}
	var feats []string
	runes := []rune(t)
	for size := cMin; size <= cMax; size++ {
		for i := 0; i+size <= len(runes); i++ {
			feats = append(feats, "c:"+string(runes[i:i+size]))
		}
	}
	words := strings.Fields(t)
	for size := wMin; size <= wMax; size++ {
		for i := 0; i+size <= len(words); i++ {
			feats = append(feats, "w:"+strings.Join(words[i:i+size], " "))
		}
	}
	return feats
}

// corpusChecksum hashes the sorted intent-name+pattern corpus; it ties an
// artifact back to the configuration that produced it.
func corpusChecksum(intents []rules.Intent) string {
	var lines []string
	for _, intent := range intents {
		for _, p := range intent.Patterns {
			lines = append(lines, intent.Name+"|"+p)
		}
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

// Train rebuilds the model from the configured intents and persists it.
// Training is deterministic for a given intent configuration.
func (n *BayesNLU) Train() error {
	cMin, cMax, wMin, wMax := n.ngRanges()
	alpha := n.alpha()

	type example struct {
		label string
		feats []string
	}
	var examples []example
	perLabel := map[string]int{}
	for _, intent := range n.cfg.Intents {
		if intent.Name == "" {
			continue
		}
		for _, p := range intent.Patterns {
			feats := extractFeatures(p, cMin, cMax, wMin, wMax)
			if len(feats) == 0 {
				continue
			}
			examples = append(examples, example{label: intent.Name, feats: feats})
			perLabel[intent.Name]++
		}
	}
	if len(perLabel) < 2 {
		return ErrNotEnoughLabels
	}

	vocab := map[string]int{}
	counts := map[string]map[string]int{}
	totals := map[string]int{}
	for _, ex := range examples {
		if counts[ex.label] == nil {
			counts[ex.label] = map[string]int{}
		}
		for _, f := range ex.feats {
			if _, ok := vocab[f]; !ok {
				vocab[f] = len(vocab)
			}
			counts[ex.label][f]++
			totals[ex.label]++
		}
	}

	labels := make([]string, 0, len(perLabel))
	for l := range perLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	v := float64(len(vocab))
	logProbs := map[string]map[string]float64{}
	logPriors := map[string]float64{}
	for _, l := range labels {
		logPriors[l] = math.Log(float64(perLabel[l]) / float64(len(examples)))
		lp := make(map[string]float64, len(counts[l]))
		denom := float64(totals[l]) + alpha*v
		for f, c := range counts[l] {
			lp[f] = math.Log((float64(c) + alpha) / denom)
		}
		logProbs[l] = lp
	}

	m := &bayesModel{
		Labels:      labels,
		Vocab:       vocab,
		LogProbs:    logProbs,
		LogPriors:   logPriors,
		ClassTotals: totals,
		CharNg:      [2]int{cMin, cMax},
		WordNg:      [2]int{wMin, wMax},
		Alpha:       alpha,
		Meta: ModelMeta{
			CreatedAt:        time.Now().UTC().Format(time.RFC3339),
			ExamplesTotal:    len(examples),
			LabelsTotal:      len(labels),
			ExamplesPerLabel: perLabel,
			VocabSize:        len(vocab),
			Checksum:         corpusChecksum(n.cfg.Intents),
			Version:          modelVersion,
		},
	}

	n.mu.Lock()
	n.model = m
	n.mu.Unlock()

	if err := n.save(m); err != nil {
		n.log.Warnw("nlu model save failed", "path", n.modelPath, "err", err)
	}
	return nil
}

func (n *BayesNLU) save(m *bayesModel) error {
	if err := os.MkdirAll(filepath.Dir(n.modelPath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(n.modelPath, data, 0o644)
}

func (n *BayesNLU) load() error {
	data, err := os.ReadFile(n.modelPath)
	if err != nil {
		return err
	}
	var m bayesModel
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode model artifact: %w", err)
	}
	if len(m.Labels) == 0 || len(m.Vocab) == 0 {
		return errors.New("model artifact is empty")
	}
	n.mu.Lock()
	n.model = &m
	n.mu.Unlock()
	return nil
}

// Classify scores the text against every class, softmax-normalizes the
// log scores into a pseudo-probability and returns the arg-max. Texts with
// no known features, or labels with no intent configuration, yield (nil, 0).
func (n *BayesNLU) Classify(text string) (*IntentMatch, float64) {
	n.mu.RLock()
	m := n.model
	n.mu.RUnlock()
	if m == nil {
		return nil, 0.0
	}

	feats := extractFeatures(text, m.CharNg[0], m.CharNg[1], m.WordNg[0], m.WordNg[1])
	known := map[string]int{}
	for _, f := range feats {
		if _, ok := m.Vocab[f]; ok {
			known[f]++
		}
	}
	if len(known) == 0 {
		return nil, 0.0
	}

	v := float64(len(m.Vocab))
	uniformPrior := math.Log(1.0 / float64(len(m.Labels)))
	scores := make([]float64, len(m.Labels))
	for i, label := range m.Labels {
		prior, ok := m.LogPriors[label]
		if !ok {
			prior = uniformPrior
		}
		score := prior
		lp := m.LogProbs[label]
		unseen := math.Log(m.Alpha / (float64(m.ClassTotals[label]) + m.Alpha*v))
		for f, count := range known {
			p, ok := lp[f]
			if !ok {
				p = unseen
			}
			score += float64(count) * p
		}
		scores[i] = score
	}

	bestIdx := 0
	maxScore := scores[0]
	for i, s := range scores {
		if s > maxScore {
			maxScore = s
			bestIdx = i
		}
	}
	var denom float64
	for _, s := range scores {
		denom += math.Exp(s - maxScore)
	}
	confidence := 1.0 / denom

	// Penalize wins built on a single matched feature.
	matched := 0
	lp := m.LogProbs[m.Labels[bestIdx]]
	for f := range known {
		if _, ok := lp[f]; ok {
			matched++
		}
	}
	if matched < 2 {
		confidence *= sparseEvidenceDiscount
	}

	label := m.Labels[bestIdx]
	for i := range n.cfg.Intents {
		if n.cfg.Intents[i].Name == label {
			return &IntentMatch{
				Name:   label,
				Action: n.cfg.Intents[i].Action,
				Score:  confidence,
				Intent: &n.cfg.Intents[i],
			}, confidence
		}
	}
	return nil, 0.0
}
