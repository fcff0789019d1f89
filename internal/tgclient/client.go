package tgclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JuanCrzp/ClientCare/model"
)

// Handler processes one canonical envelope and returns the reply.
type Handler func(ctx context.Context, in model.Inbound) model.Reply

// Client is a long-polling Telegram Bot API connector.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func NewClient(token string, log *zap.SugaredLogger) *Client {
	return &Client{
		token:      token,
		baseURL:    "https://api.telegram.org",
		httpClient: &http.Client{Timeout: 40 * time.Second},
		log:        log,
	}
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		From struct {
			ID int64 `json:"id"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type updatesResponse struct {
	OK     bool     `json:"ok"`
	Result []update `json:"result"`
}

// Run polls getUpdates until the context is cancelled, feeding each text
// message through the handler and sending the reply back.
func (c *Client) Run(ctx context.Context, handle Handler) {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := c.getUpdates(ctx, offset)
		if err != nil {
			c.log.Warnw("telegram polling failed", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil || u.Message.Text == "" {
				continue
			}
			chatID := strconv.FormatInt(u.Message.Chat.ID, 10)
			reply := handle(ctx, model.Inbound{
				Text:           u.Message.Text,
				PlatformUserID: strconv.FormatInt(u.Message.From.ID, 10),
				GroupID:        chatID,
				Platform:       "telegram",
			})
			c.sendReply(ctx, chatID, reply)
		}
	}
}

func (c *Client) getUpdates(ctx context.Context, offset int64) ([]update, error) {
	q := url.Values{}
	q.Set("timeout", "30")
	if offset > 0 {
		q.Set("offset", strconv.FormatInt(offset, 10))
	}
	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?%s", c.baseURL, c.token, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed updatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram api returned ok=false")
	}
	return parsed.Result, nil
}

func (c *Client) sendReply(ctx context.Context, chatID string, reply model.Reply) {
	parts := reply.Messages
	if len(parts) == 0 {
		parts = []model.ReplyMessage{{Text: reply.Text}}
	}
	for _, p := range parts {
		if p.DelaySeconds > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(p.DelaySeconds) * time.Second):
			}
		}
		if err := c.sendMessage(ctx, chatID, p.Text); err != nil {
			c.log.Warnw("telegram send failed", "chat", chatID, "err", err)
			return
		}
	}
}

func (c *Client) sendMessage(ctx context.Context, chatID, text string) error {
	q := url.Values{}
	q.Set("chat_id", chatID)
	q.Set("text", text)
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage?%s", c.baseURL, c.token, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram api returned status %d", resp.StatusCode)
	}
	return nil
}
