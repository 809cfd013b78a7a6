package calendar

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeProvider struct {
	mu       sync.Mutex
	holidays []Holiday
	err      error
	calls    int
}

func (p *fakeProvider) FetchEvents(_ context.Context, start, end Date) ([]Holiday, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	var out []Holiday
	for _, h := range p.holidays {
		if !h.Date.Before(start) && !h.Date.After(end) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (p *fakeProvider) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type memStore struct {
	mu     sync.Mutex
	leaves []Leave
	err    error
	loads  int
}

func (s *memStore) LoadLeaves(context.Context) ([]Leave, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return append([]Leave(nil), s.leaves...), nil
}

func (s *memStore) SaveLeaves(_ context.Context, leaves []Leave) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.leaves = append([]Leave(nil), leaves...)
	return nil
}

var errBoom = errors.New("boom")

type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func mustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
