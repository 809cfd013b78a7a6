package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
)

// specParser accepts standard 5-field cron and descriptors such as "@daily".
var specParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NormalizeSpec accepts "HH:MM" (every day at that time) or a cron
// expression and returns the cron form Register stores.
func NormalizeSpec(raw string) (string, error) {
	spec, _, err := parseSpec(raw)
	return spec, err
}

func parseSpec(raw string) (string, cron.Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", nil, errors.New("schedule is empty")
	}
	if isHHMM(s) {
		hh, mm, _ := strings.Cut(s, ":")
		h, err := strconv.Atoi(hh)
		if err != nil || h < 0 || h > 23 {
			return "", nil, fmt.Errorf("invalid hour in %q", s)
		}
		m, err := strconv.Atoi(mm)
		if err != nil || m < 0 || m > 59 {
			return "", nil, fmt.Errorf("invalid minute in %q", s)
		}
		s = fmt.Sprintf("%d %d * * *", m, h)
	}
	sched, err := specParser.Parse(s)
	if err != nil {
		return "", nil, fmt.Errorf("invalid cron %q: %w", raw, err)
	}
	return s, sched, nil
}

func isHHMM(s string) bool {
	return !strings.ContainsAny(s, " \t") && strings.Count(s, ":") == 1
}
