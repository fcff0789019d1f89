package model

// State names for a conversation. Anything unknown resolves to StateNone.
const (
	StateNone         = ""
	StateMenuDynamic  = "menu:dyn"
	StateMenuMain     = "menu:main"
	StateMenuFaq      = "menu:faq"
	StateTicketDetail = "ticket:ask_detail"
)

const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Inbound is the canonical envelope every connector produces: the message
// text plus the (user, chat) identity pair. Platform is informational only.
type Inbound struct {
	Text           string `json:"text"`
	PlatformUserID string `json:"platform_user_id"`
	GroupID        string `json:"group_id"`
	Platform       string `json:"platform,omitempty"`
}

// ReplyMessage is one part of a multi-part reply; DelaySeconds asks the
// connector to pause before sending it.
type ReplyMessage struct {
	Text         string `json:"text"`
	DelaySeconds int    `json:"delay,omitempty"`
}

// Reply is the canonical outbound shape. Text is always set; Messages is
// populated when the reply has multiple delayed parts, for connectors that
// can deliver them separately.
type Reply struct {
	Text     string         `json:"text"`
	Messages []ReplyMessage `json:"messages,omitempty"`
}

// TextReply wraps a single string as a Reply.
func TextReply(text string) Reply { return Reply{Text: text} }

// ConversationState is the persisted per-(user,chat) flow position.
type ConversationState struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data,omitempty"`
}

// HistoryEvent is one entry of the per-(user,chat) conversation log.
type HistoryEvent struct {
	Ts   int64          `json:"ts"`
	Role string         `json:"role"`
	Text string         `json:"text"`
	Meta map[string]any `json:"meta,omitempty"`
}

// Topic marks an unfinished conversational thread that may be offered for
// resumption. ExpiresAt of zero means no expiry.
type Topic struct {
	Name      string         `json:"name"`
	Data      map[string]any `json:"data,omitempty"`
	Ts        int64          `json:"ts"`
	ExpiresAt int64          `json:"expires_at,omitempty"`
}

type TicketStatus string

const (
	TicketOpen     TicketStatus = "open"
	TicketPending  TicketStatus = "pending"
	TicketResolved TicketStatus = "resolved"
	TicketClosed   TicketStatus = "closed"
)

type Ticket struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	ChatID    string       `json:"chat_id,omitempty"`
	Text      string       `json:"text"`
	Status    TicketStatus `json:"status"`
	CreatedAt string       `json:"created_at"`
	UpdatedAt string       `json:"updated_at"`
}
