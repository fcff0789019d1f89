package nlu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JuanCrzp/ClientCare/rules"
)

func bayesCfg() rules.NLU {
	return rules.NLU{
		Provider: "ml",
		Intents: []rules.Intent{
			{
				Name:   "abrir_ticket",
				Action: "ticket_ask_detail",
				Patterns: []string{
					"quiero abrir un ticket",
					"necesito un ticket de soporte",
					"tengo un problema con mi pedido",
				},
			},
			{
				Name:   "hablar_agente",
				Action: "escalation",
				Patterns: []string{
					"quiero hablar con un agente",
					"pasame con un humano",
					"atencion personalizada por favor",
				},
			},
		},
	}
}

func newTestBayes(t *testing.T, cfg rules.NLU, dir string) *BayesNLU {
	t.Helper()
	return NewBayesNLU(cfg, dir, zap.NewNop().Sugar())
}

func TestBayesTrainsOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	n := newTestBayes(t, bayesCfg(), dir)

	assert.True(t, n.Ready())
	_, err := os.Stat(n.ModelPath())
	assert.NoError(t, err)

	labels, vocabSize, meta, ok := n.Info()
	require.True(t, ok)
	assert.Equal(t, []string{"abrir_ticket", "hablar_agente"}, labels)
	assert.Greater(t, vocabSize, 0)
	assert.Equal(t, 6, meta.ExamplesTotal)
	assert.Equal(t, 2, meta.LabelsTotal)
	assert.NotEmpty(t, meta.Checksum)
}

func TestBayesClassifyTrainingExamples(t *testing.T) {
	n := newTestBayes(t, bayesCfg(), t.TempDir())

	m, score := n.Classify("necesito un ticket de soporte")
	require.NotNil(t, m)
	assert.Equal(t, "abrir_ticket", m.Name)
	assert.Equal(t, "ticket_ask_detail", m.Action)
	assert.GreaterOrEqual(t, score, 0.75)

	m, score = n.Classify("quiero hablar con un agente")
	require.NotNil(t, m)
	assert.Equal(t, "hablar_agente", m.Name)
	assert.GreaterOrEqual(t, score, 0.75)
}

func TestBayesInconclusiveInputs(t *testing.T) {
	n := newTestBayes(t, bayesCfg(), t.TempDir())

	m, score := n.Classify("")
	assert.Nil(t, m)
	assert.Equal(t, 0.0, score)

	// No feature of this text appears in the vocabulary.
	m, score = n.Classify("zzzz qqqq")
	assert.Nil(t, m)
	assert.Equal(t, 0.0, score)
}

func TestBayesPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	first := newTestBayes(t, bayesCfg(), dir)
	require.True(t, first.Ready())
	_, _, trained, ok := first.Info()
	require.True(t, ok)

	// Second instance finds the artifact and loads instead of retraining.
	second := newTestBayes(t, bayesCfg(), dir)
	require.True(t, second.Ready())
	_, _, loaded, ok := second.Info()
	require.True(t, ok)
	assert.Equal(t, trained.Checksum, loaded.Checksum)
	assert.Equal(t, trained.CreatedAt, loaded.CreatedAt)

	m, _ := second.Classify("tengo un problema con mi pedido")
	require.NotNil(t, m)
	assert.Equal(t, "abrir_ticket", m.Name)
}

func TestBayesNeedsTwoLabels(t *testing.T) {
	cfg := rules.NLU{Intents: []rules.Intent{
		{Name: "solo", Patterns: []string{"un solo intent"}},
	}}
	n := newTestBayes(t, cfg, t.TempDir())

	assert.False(t, n.Ready())
	assert.ErrorIs(t, n.Train(), ErrNotEnoughLabels)

	m, score := n.Classify("un solo intent")
	assert.Nil(t, m)
	assert.Equal(t, 0.0, score)
}

func TestBayesRetrainOnStart(t *testing.T) {
	dir := t.TempDir()
	cfg := bayesCfg()
	path := filepath.Join(dir, "models", "nlu_model.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	// A corrupt artifact plus retrain_on_start still yields a working model.
	cfg.ML.RetrainOnStart = true
	n := newTestBayes(t, cfg, dir)
	assert.True(t, n.Ready())
}

func TestExtractFeatures(t *testing.T) {
	feats := extractFeatures("hola mundo", 3, 3, 1, 2)
	assert.Contains(t, feats, "c:hol")
	assert.Contains(t, feats, "w:hola")
	assert.Contains(t, feats, "w:hola mundo")
	assert.NotContains(t, feats, "c:hola")

	assert.Nil(t, extractFeatures("   ", 3, 5, 1, 2))
}
