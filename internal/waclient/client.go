package waclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JuanCrzp/ClientCare/model"
)

const tokenBackoff = 5 * time.Minute

// Client sends text messages through the WhatsApp Cloud API. After a 401
// the token is flagged invalid for a backoff window so a bad credential
// does not hammer the Graph API on every inbound message.
type Client struct {
	baseURL     string
	accessToken string
	phoneID     string
	httpClient  *http.Client
	log         *zap.SugaredLogger

	mu                sync.Mutex
	tokenInvalidUntil time.Time
}

func NewClient(accessToken, phoneID string, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL:     "https://graph.facebook.com/v18.0",
		accessToken: accessToken,
		phoneID:     phoneID,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		log:         log,
	}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.accessToken != "" && c.phoneID != ""
}

// SendReply delivers a canonical reply, honoring multi-part messages and
// their delays. Send failures are logged, never propagated: delivery is a
// connector concern and must not affect engine state.
func (c *Client) SendReply(ctx context.Context, to string, reply model.Reply) {
	if len(reply.Messages) == 0 {
		if err := c.SendText(ctx, to, reply.Text); err != nil {
			c.log.Warnw("whatsapp send failed", "to", to, "err", err)
		}
		return
	}
	for _, msg := range reply.Messages {
		if msg.DelaySeconds > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(msg.DelaySeconds) * time.Second):
			}
		}
		if err := c.SendText(ctx, to, msg.Text); err != nil {
			c.log.Warnw("whatsapp send failed", "to", to, "err", err)
			return
		}
	}
}

func (c *Client) SendText(ctx context.Context, to, text string) error {
	if !c.Configured() {
		c.log.Debugw("whatsapp credentials not configured, skipping send", "to", to)
		return nil
	}
	c.mu.Lock()
	blocked := time.Now().Before(c.tokenInvalidUntil)
	c.mu.Unlock()
	if blocked {
		return fmt.Errorf("access token flagged invalid, backing off")
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.mu.Lock()
		c.tokenInvalidUntil = time.Now().Add(tokenBackoff)
		c.mu.Unlock()
		return fmt.Errorf("graph api rejected access token (401)")
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("graph api returned status %d", resp.StatusCode)
	}
	return nil
}
