package transport

import "context"

// ChatTarget addresses a Telegram chat (and optional forum topic thread).
type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Sender delivers plain-text messages to an operator chat.
//
// attendbot only pushes messages (log sink + outcome notifications); it never
// consumes updates, so there is no receive side here.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) error
}
