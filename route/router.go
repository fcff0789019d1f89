package route

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/JuanCrzp/ClientCare/api"
	"github.com/JuanCrzp/ClientCare/internal/waclient"
	"github.com/JuanCrzp/ClientCare/nlu"
	"github.com/JuanCrzp/ClientCare/rules"
	"github.com/JuanCrzp/ClientCare/service"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Engine        *service.Engine
	Rules         *rules.Provider
	Bayes         *nlu.BayesNLU
	WhatsApp      *waclient.Client
	WAVerifyToken string
	Log           *zap.SugaredLogger
}

func Register(r *gin.Engine, d Deps) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.POST("/webchat", api.WebchatHandler(d.Engine))

	wa := r.Group("/whatsapp")
	{
		wa.GET("/webhook", api.WhatsAppVerifyHandler(d.WAVerifyToken, d.Log))
		wa.POST("/webhook", api.WhatsAppWebhookHandler(d.Engine, d.WhatsApp, d.Log))
	}

	admin := r.Group("/admin")
	{
		admin.POST("/rules/reload", api.RulesReloadHandler(d.Rules))
		admin.POST("/nlu/train", api.NLUTrainHandler(d.Bayes))
		admin.GET("/nlu/info", api.NLUInfoHandler(d.Bayes))
	}
}
