package action

import (
	"context"
	"strings"

	"attendbot/internal/driver"
)

// Prober reads externally observed state. It never judges what it reads.
type Prober struct {
	d driver.Driver
}

func NewProber(d driver.Driver) Prober { return Prober{d: d} }

// Observe returns the element text with surrounding whitespace removed.
func (p Prober) Observe(ctx context.Context, loc driver.Locator) (string, error) {
	text, err := p.d.Probe(ctx, loc)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// normalize folds case and collapses runs of whitespace.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func sameLabel(a, b string) bool {
	return normalize(a) == normalize(b)
}
