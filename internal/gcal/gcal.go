// Package gcal is the Google Calendar event source: it lists today's
// events for an identity's primary calendar over the Calendar v3 REST API
// and maps them into the watcher's event model.
package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"statuswatch/internal/googleapi"
	"statuswatch/internal/log"
	"statuswatch/internal/model"
)

const baseURL = "https://www.googleapis.com/calendar/v3"

// Source implements session.CalendarSource over the Calendar API. Each
// identity gets its own impersonated HTTP client, cached after first use.
type Source struct {
	creds *googleapi.Credentials

	mu      sync.Mutex
	clients map[string]*http.Client
}

func NewSource(creds *googleapi.Credentials) *Source {
	return &Source{
		creds:   creds,
		clients: make(map[string]*http.Client),
	}
}

// clientFor returns the cached impersonated client for identity. Clients
// are built on the background context deliberately: their token source
// outlives any single tick.
func (s *Source) clientFor(identity string) (*http.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hc, ok := s.clients[identity]; ok {
		return hc, nil
	}
	hc, err := s.creds.Client(context.Background(), identity, googleapi.ScopeCalendarReadonly)
	if err != nil {
		return nil, err
	}
	hc.Timeout = 15 * time.Second
	s.clients[identity] = hc
	return hc, nil
}

// Wire types for the events.list response.

type eventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

type attendee struct {
	Self           bool   `json:"self"`
	ResponseStatus string `json:"responseStatus"`
}

type entryPoint struct {
	EntryPointType string `json:"entryPointType"`
	URI            string `json:"uri"`
}

type conferenceData struct {
	EntryPoints []entryPoint `json:"entryPoints"`
}

type workingLocation struct {
	Type string `json:"type"`
}

type eventItem struct {
	Summary                   string           `json:"summary"`
	Visibility                string           `json:"visibility"`
	Start                     eventTime        `json:"start"`
	End                       eventTime        `json:"end"`
	Attendees                 []attendee       `json:"attendees"`
	ConferenceData            *conferenceData  `json:"conferenceData"`
	WorkingLocationProperties *workingLocation `json:"workingLocationProperties"`
}

type eventsPage struct {
	Items         []eventItem `json:"items"`
	NextPageToken string      `json:"nextPageToken"`
}

// TodaysEvents lists events from now onward and keeps those starting
// today (UTC), sorted by start time by the API (orderBy=startTime).
func (s *Source) TodaysEvents(ctx context.Context, identity string) ([]model.Event, error) {
	hc, err := s.clientFor(identity)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	items, err := s.listEvents(ctx, hc, now)
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(items))
	for _, item := range items {
		ev, err := mapEvent(item)
		if err != nil {
			// A malformed event is a local fault; skip it and keep the tick alive.
			log.Warn("skipping malformed calendar event", "identity", identity, "summary", item.Summary, "err", err)
			continue
		}
		if !sameDay(ev.Start, now) {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *Source) listEvents(ctx context.Context, hc *http.Client, now time.Time) ([]eventItem, error) {
	params := url.Values{
		"timeMin":      {now.Format(time.RFC3339)},
		"maxResults":   {"50"},
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
	}

	var all []eventItem
	pageToken := ""
	for {
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}
		endpoint := fmt.Sprintf("%s/calendars/primary/events?%s", baseURL, params.Encode())

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := hc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("calendar request failed: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("calendar API error %d: %s", resp.StatusCode, string(body))
		}

		var page eventsPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decoding calendar response: %w", err)
		}
		all = append(all, page.Items...)
		if page.NextPageToken == "" {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}

// mapEvent converts one API event into the watcher model. Date-only
// boundaries mark whole-day events.
func mapEvent(item eventItem) (model.Event, error) {
	start, allDay, err := parseBoundary(item.Start)
	if err != nil {
		return model.Event{}, fmt.Errorf("start: %w", err)
	}
	end, _, err := parseBoundary(item.End)
	if err != nil {
		return model.Event{}, fmt.Errorf("end: %w", err)
	}

	ev := model.Event{
		Summary:    item.Summary,
		Visibility: item.Visibility,
		AllDay:     allDay,
		Start:      start,
		End:        end,
	}

	for _, a := range item.Attendees {
		if a.Self && a.ResponseStatus != "" {
			ev.Response = a.ResponseStatus
		}
	}
	if item.ConferenceData != nil {
		for _, ep := range item.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				ev.JoinURL = ep.URI
				break
			}
		}
	}
	if item.WorkingLocationProperties != nil {
		ev.Location = model.LocationKind(item.WorkingLocationProperties.Type)
	}
	return ev, nil
}

func parseBoundary(t eventTime) (time.Time, bool, error) {
	switch {
	case t.DateTime != "":
		ts, err := time.Parse(time.RFC3339, t.DateTime)
		return ts, false, err
	case t.Date != "":
		ts, err := time.ParseInLocation("2006-01-02", t.Date, time.UTC)
		return ts, true, err
	}
	return time.Time{}, false, fmt.Errorf("event boundary has neither dateTime nor date")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
