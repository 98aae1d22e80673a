package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appLog "icalmasto/internal/log"
	"icalmasto/internal/model"
)

// Distinct fetch failure classes. Callers match with errors.Is to log
// appropriately without inspecting protocol details; any of them is
// fatal to the calling operation (there is no calendar to select from).
var (
	ErrTransport = errors.New("ics: transport failure")
	ErrStatus    = errors.New("ics: unexpected response status")
	ErrEmptyBody = errors.New("ics: empty response body")
)

// Fetcher retrieves a calendar feed and hands the body to the parser.
// It performs one whole-document read per call; retry policy, if any,
// belongs to the orchestration layer.
type Fetcher struct {
	client *http.Client
	loc    *time.Location
}

// NewFetcher creates a Fetcher whose parsed calendars interpret
// floating times in loc (nil means UTC).
func NewFetcher(loc *time.Location) *Fetcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		loc: loc,
	}
}

// Fetch retrieves and parses the feed at the given locator. Both
// https:// and the calendar-subscription webcal:// scheme are
// accepted; the latter is rewritten before the request.
func (f *Fetcher) Fetch(ctx context.Context, locator string) (*model.Calendar, error) {
	url := NormalizeLocator(locator)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	appLog.Info("ics fetch start", "url", redactURL(url))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyBody, redactURL(url))
	}

	cal := Parse(string(body), f.loc)
	appLog.Info("ics fetch success", "url", redactURL(url), "event_count", len(cal.Events))

	return cal, nil
}

// NormalizeLocator rewrites calendar-subscription locators to their
// network-retrievable form: webcal:// means "fetch over https and
// treat the content as a calendar feed", so webcal and webcals both
// map to https. Standard http/https locators pass through unchanged.
func NormalizeLocator(locator string) string {
	lower := strings.ToLower(locator)
	switch {
	case strings.HasPrefix(lower, "webcals://"):
		return "https://" + locator[len("webcals://"):]
	case strings.HasPrefix(lower, "webcal://"):
		return "https://" + locator[len("webcal://"):]
	default:
		return locator
	}
}

// redactURL hides path and query of a feed URL for logging purposes;
// private feeds commonly embed access tokens in the path.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := strings.Index(u, "://")
	if i == -1 {
		return "...(redacted)"
	}

	j := i + 3
	for j < len(u) && u[j] != '/' {
		j++
	}

	return u[:j] + redactedSuffix
}
