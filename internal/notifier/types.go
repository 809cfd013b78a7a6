package notifier

import (
	"time"

	"attendbot/internal/transport"
)

type Config struct {
	Enabled bool
	Target  transport.ChatTarget

	QueueSize     int
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	// DedupWindow suppresses an identical message sent again within it.
	DedupWindow time.Duration
}

type HistoryItem struct {
	At   time.Time
	Text string
}
