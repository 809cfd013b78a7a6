package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultCalendarBaseURL = "https://www.googleapis.com/calendar/v3"

// HTTPProviderConfig configures a Google Calendar v3 events.list client.
//
// Public holiday calendars are readable with an API key, e.g.
// CalendarID "en.usa#holiday@group.v.calendar.google.com".
type HTTPProviderConfig struct {
	BaseURL    string
	CalendarID string
	APIKey     string
	Timeout    time.Duration
}

type HTTPProvider struct {
	cfg  HTTPProviderConfig
	http *http.Client
}

func NewHTTPProvider(cfg HTTPProviderConfig) (*HTTPProvider, error) {
	if strings.TrimSpace(cfg.CalendarID) == "" {
		return nil, errors.New("calendar_id is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultCalendarBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPProvider{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

type eventsPage struct {
	Items []struct {
		Summary string `json:"summary"`
		Status  string `json:"status"`
		Start   struct {
			Date     string `json:"date"`
			DateTime string `json:"dateTime"`
		} `json:"start"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// FetchEvents returns the all-day events between start and end (inclusive).
func (p *HTTPProvider) FetchEvents(ctx context.Context, start, end Date) ([]Holiday, error) {
	var out []Holiday
	pageToken := ""
	for {
		page, err := p.fetchPage(ctx, start, end, pageToken)
		if err != nil {
			return nil, err
		}
		for _, it := range page.Items {
			if it.Status == "cancelled" {
				continue
			}
			raw := it.Start.Date
			if raw == "" && len(it.Start.DateTime) >= len(dateLayout) {
				raw = it.Start.DateTime[:len(dateLayout)]
			}
			d, err := ParseDate(raw)
			if err != nil {
				continue
			}
			if d.Before(start) || d.After(end) {
				continue
			}
			out = append(out, Holiday{Date: d, Label: strings.TrimSpace(it.Summary)})
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func (p *HTTPProvider) fetchPage(ctx context.Context, start, end Date, pageToken string) (*eventsPage, error) {
	q := url.Values{}
	q.Set("timeMin", start.In(time.UTC).Format(time.RFC3339))
	q.Set("timeMax", end.AddDays(1).In(time.UTC).Format(time.RFC3339))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	q.Set("maxResults", "2500")
	if p.cfg.APIKey != "" {
		q.Set("key", p.cfg.APIKey)
	}
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	u := strings.TrimRight(p.cfg.BaseURL, "/") + "/calendars/" + url.PathEscape(p.cfg.CalendarID) + "/events?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("calendar api: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var page eventsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("calendar api: decode: %w", err)
	}
	return &page, nil
}
