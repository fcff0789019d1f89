package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/JuanCrzp/ClientCare/internal/waclient"
	"github.com/JuanCrzp/ClientCare/model"
	"github.com/JuanCrzp/ClientCare/service"
)

// WhatsAppVerifyHandler answers Meta's webhook subscription handshake.
func WhatsAppVerifyHandler(verifyToken string, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		mode := c.Query("hub.mode")
		token := c.Query("hub.verify_token")
		challenge := c.Query("hub.challenge")
		if mode == "subscribe" && token == verifyToken && challenge != "" {
			c.String(http.StatusOK, challenge)
			return
		}
		log.Warnw("whatsapp webhook verification failed", "mode", mode)
		c.JSON(http.StatusForbidden, gin.H{"error": "verification failed"})
	}
}

// Incoming webhook payload, trimmed to the fields we read.
type waWebhook struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// WhatsAppWebhookHandler turns Cloud API notifications into canonical
// envelopes and sends the engine's reply back through the Graph API. The
// webhook is always acknowledged with 200 so Meta does not retry.
func WhatsAppWebhookHandler(engine *service.Engine, sender *waclient.Client, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload waWebhook
		if err := c.ShouldBindJSON(&payload); err != nil {
			log.Warnw("whatsapp webhook payload unreadable", "err", err)
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}

		for _, entry := range payload.Entry {
			for _, change := range entry.Changes {
				for _, msg := range change.Value.Messages {
					if msg.Type != "text" || msg.Text.Body == "" {
						continue
					}
					reply := engine.ProcessMessage(c.Request.Context(), model.Inbound{
						Text:           msg.Text.Body,
						PlatformUserID: msg.From,
						GroupID:        "",
						Platform:       "whatsapp",
					})
					sender.SendReply(c.Request.Context(), msg.From, reply)
				}
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
