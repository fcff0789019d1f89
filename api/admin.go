package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JuanCrzp/ClientCare/nlu"
	"github.com/JuanCrzp/ClientCare/rules"
)

// RulesReloadHandler drops the rules cache and re-reads the file, so rule
// edits take effect without a restart.
func RulesReloadHandler(provider *rules.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := provider.Reload(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "reloaded"})
	}
}

// NLUTrainHandler forces a retrain of the statistical model from the
// current intents and reports the resulting metadata.
func NLUTrainHandler(bayes *nlu.BayesNLU) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bayes == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "ml provider not configured"})
			return
		}
		if err := bayes.Train(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		labels, vocabSize, meta, _ := bayes.Info()
		c.JSON(http.StatusOK, gin.H{
			"model_path": bayes.ModelPath(),
			"labels":     labels,
			"vocab_size": vocabSize,
			"meta":       meta,
		})
	}
}

// NLUInfoHandler reports the loaded model, if any.
func NLUInfoHandler(bayes *nlu.BayesNLU) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bayes == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "ml provider not configured"})
			return
		}
		labels, vocabSize, meta, ok := bayes.Info()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no model trained yet"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"model_path": bayes.ModelPath(),
			"labels":     labels,
			"vocab_size": vocabSize,
			"meta":       meta,
		})
	}
}
