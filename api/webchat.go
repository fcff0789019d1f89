package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/JuanCrzp/ClientCare/model"
	"github.com/JuanCrzp/ClientCare/service"
)

type webchatRequest struct {
	Text   string `json:"text" binding:"required"`
	UserID string `json:"user_id"`
	ChatID string `json:"chat_id"`
}

// WebchatHandler is the browser-facing endpoint: one JSON message in, the
// canonical reply out. Anonymous visitors get a generated user id they can
// echo back on subsequent requests.
func WebchatHandler(engine *service.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req webchatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
		if req.UserID == "" {
			req.UserID = "web-" + uuid.New().String()
		}

		reply := engine.ProcessMessage(c.Request.Context(), model.Inbound{
			Text:           req.Text,
			PlatformUserID: req.UserID,
			GroupID:        req.ChatID,
			Platform:       "webchat",
		})

		c.JSON(http.StatusOK, gin.H{
			"text":     reply.Text,
			"messages": reply.Messages,
			"user_id":  req.UserID,
		})
	}
}
