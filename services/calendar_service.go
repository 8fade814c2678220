package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prabeshd/ipo-applier/shared"
)

// CalendarStatus is the tri-state outcome of the open-issue check.
// Unavailable means the feeds could not be consulted; it must never be
// conflated with NothingOpen, which is a definitive answer.
type CalendarStatus string

const (
	CalendarOpen        CalendarStatus = "open"
	CalendarNothingOpen CalendarStatus = "nothing_open"
	CalendarUnavailable CalendarStatus = "unavailable"
)

// calendarFeeds are the public issue calendars checked for open items.
var calendarFeeds = []struct {
	Name string
	Path string
}{
	{Name: "IPO", Path: "/ipo/"},
	{Name: "FPO", Path: "/fpo/"},
	{Name: "Right-Share", Path: "/right-share/"},
}

// CalendarService consults the public issue calendar feeds to decide
// whether anything is open for application today. It gates the daily
// bulk-apply job so the broker is not logged into on quiet days.
type CalendarService struct {
	baseURL     string
	httpFactory *shared.HTTPClientFactory
	timeout     time.Duration
	maxRetries  int
}

// NewCalendarService creates a calendar service for the given feed base URL.
func NewCalendarService(baseURL string, timeout time.Duration, maxRetries int) *CalendarService {
	return &CalendarService{
		baseURL:     baseURL,
		httpFactory: shared.NewHTTPClientFactory(timeout),
		timeout:     timeout,
		maxRetries:  maxRetries,
	}
}

// CheckOpenIssues checks every feed for an item with status "Open".
// Any open item anywhere yields CalendarOpen, even if another feed
// failed. With no open items, a single failed feed degrades the answer
// to CalendarUnavailable. The returned slice names the feeds that had
// open items.
func (s *CalendarService) CheckOpenIssues(ctx context.Context) (CalendarStatus, []string) {
	logger := logrus.WithField("service", "CalendarService")

	anyOpen := false
	anyFailed := false
	openFeeds := []string{}

	for _, feed := range calendarFeeds {
		open, err := s.feedHasOpenItem(ctx, s.baseURL+feed.Path)
		if err != nil {
			logger.WithError(err).WithField("feed", feed.Name).Warn("Calendar feed check failed")
			anyFailed = true
			continue
		}

		if open {
			logger.WithField("feed", feed.Name).Info("Found open issue in calendar feed")
			anyOpen = true
			openFeeds = append(openFeeds, feed.Name)
		} else {
			logger.WithField("feed", feed.Name).Debug("No open items in calendar feed")
		}
	}

	switch {
	case anyOpen:
		return CalendarOpen, openFeeds
	case anyFailed:
		return CalendarUnavailable, nil
	default:
		return CalendarNothingOpen, nil
	}
}

// feedHasOpenItem fetches one feed and scans its items for status "Open".
func (s *CalendarService) feedHasOpenItem(ctx context.Context, feedURL string) (bool, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return false, err
	}
	shared.SetBrowserLikeHeaders(request)

	response, err := shared.ExecuteRequestWithRetry(s.httpFactory.Client(s.timeout), request, s.maxRetries)
	if err != nil {
		return false, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return false, err
	}

	var items []struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &items); err != nil {
		return false, err
	}

	for _, item := range items {
		if item.Status == "Open" {
			return true, nil
		}
	}

	return false, nil
}
