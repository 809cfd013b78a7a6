package notifier

import (
	"context"
	"errors"
	"sync"

	"attendbot/internal/transport"
	logx "attendbot/pkg/logx"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	to    []transport.ChatTarget
	fails int
	calls int
	ch    chan string
}

func newFakeSender() *fakeSender { return &fakeSender{ch: make(chan string, 32)} }

func (f *fakeSender) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) error {
	f.mu.Lock()
	f.calls++
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return errors.New("telegram: 502")
	}
	f.sent = append(f.sent, text)
	f.to = append(f.to, to)
	f.mu.Unlock()
	f.ch <- text
	return nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testLogger() logx.Logger { return logx.Nop() }
