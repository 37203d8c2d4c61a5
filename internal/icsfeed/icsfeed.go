// Package icsfeed is a supplemental calendar source backed by ICS
// subscriptions, typically leave calendars exported by HR tools. Feeds
// are fetched with conditional GET (ETag / Last-Modified) over a disk
// cache, parsed with golang-ical, and recurring entries are expanded
// into today's occurrences.
package icsfeed

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"statuswatch/internal/log"
	"statuswatch/internal/model"
)

// Feed is one ICS subscription bound to an identity.
type Feed struct {
	Identity string
	URL      string
}

// Source implements session.CalendarSource for identities that have
// feeds configured; identities without feeds get an empty event list.
type Source struct {
	feeds    map[string][]Feed
	client   *http.Client
	cacheDir string
}

func NewSource(feeds []Feed, cacheDir string) *Source {
	byIdentity := make(map[string][]Feed)
	for _, f := range feeds {
		byIdentity[f.Identity] = append(byIdentity[f.Identity], f)
	}
	if cacheDir == "" {
		cacheDir = "./var/feed-cache"
	}
	return &Source{
		feeds:    byIdentity,
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
	}
}

// TodaysEvents fetches each of the identity's feeds and returns the
// entries active today. A failing feed is skipped with a warning.
func (s *Source) TodaysEvents(ctx context.Context, identity string) ([]model.Event, error) {
	feeds := s.feeds[identity]
	if len(feeds) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	var events []model.Event
	for _, feed := range feeds {
		body, err := s.fetch(ctx, feed.URL)
		if err != nil {
			log.Warn("ics feed fetch failed", "identity", identity, "err", err)
			continue
		}
		parsed, err := todaysEntries(body, now)
		if err != nil {
			log.Warn("ics feed parse failed", "identity", identity, "err", err)
			continue
		}
		events = append(events, parsed...)
	}
	return events, nil
}

// feedMeta holds the conditional-GET cache metadata for one URL.
type feedMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *Source) cachePath(feedURL string) string {
	sum := sha256.Sum256([]byte(feedURL))
	return filepath.Join(s.cacheDir, hex.EncodeToString(sum[:8]))
}

// fetch performs a conditional GET, falling back to the cached body on
// 304 or network failure.
func (s *Source) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	if feedURL == "" {
		return nil, errors.New("feed URL is empty")
	}

	dir := s.cachePath(feedURL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	var meta feedMeta
	if data, err := os.ReadFile(filepath.Join(dir, "meta.json")); err == nil {
		_ = json.Unmarshal(data, &meta)
	}
	cached, _ := os.ReadFile(filepath.Join(dir, "body.ics"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			log.Warn("ics feed unreachable, using cached body", "err", err)
			return cached, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		s.saveCache(dir, feedMeta{
			URL:          feedURL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}, body)
		return body, nil
	case http.StatusNotModified:
		if len(cached) == 0 {
			return nil, errors.New("304 Not Modified but no cached body")
		}
		return cached, nil
	default:
		if len(cached) > 0 {
			log.Warn("ics feed returned non-OK, using cached body", "status", resp.StatusCode)
			return cached, nil
		}
		return nil, fmt.Errorf("ics feed error: %s", resp.Status)
	}
}

func (s *Source) saveCache(dir string, meta feedMeta, body []byte) {
	data, err := json.Marshal(meta)
	if err == nil {
		err = os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
	}
	if err == nil {
		err = os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600)
	}
	if err != nil {
		log.Warn("ics feed cache save failed", "err", err)
	}
}

// todaysEntries parses an ICS payload and returns the entries whose
// occurrence starts today (UTC), with recurring entries expanded.
func todaysEntries(body []byte, now time.Time) ([]model.Event, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	var events []model.Event
	for _, ve := range cal.Events() {
		out, err := expandToday(ve, dayStart, dayEnd)
		if err != nil {
			log.Warn("skipping ics entry", "err", err)
			continue
		}
		events = append(events, out...)
	}
	return events, nil
}

func expandToday(ve *ical.VEvent, dayStart, dayEnd time.Time) ([]model.Event, error) {
	summary := propValue(ve, ical.ComponentPropertySummary)

	start, err := ve.GetStartAt()
	if err != nil {
		start, err = ve.GetAllDayStartAt()
		if err != nil {
			return nil, fmt.Errorf("entry %q has no usable DTSTART: %w", summary, err)
		}
	}
	end, err := ve.GetEndAt()
	if err != nil {
		end, err = ve.GetAllDayEndAt()
	}
	if err != nil || end.Before(start) {
		end = start.Add(24 * time.Hour)
	}
	allDay := isDateOnly(ve)

	base := model.Event{
		Summary: summary,
		AllDay:  allDay,
		Start:   start.UTC(),
		End:     end.UTC(),
	}
	if allDay {
		base.Start = truncateToDate(start)
		base.End = truncateToDate(end)
		// A DTEND equal to DTSTART still means one full day.
		if !base.End.After(base.Start) {
			base.End = base.Start.Add(24 * time.Hour)
		}
	}

	raw := propValue(ve, ical.ComponentPropertyRrule)
	if raw == "" {
		if startsWithin(base, dayStart, dayEnd) {
			return []model.Event{base}, nil
		}
		return nil, nil
	}

	// Recurring entry: expand occurrences intersecting today.
	r, err := rrule.StrToRRule(raw)
	if err != nil {
		return nil, fmt.Errorf("entry %q has invalid RRULE: %w", summary, err)
	}
	r.DTStart(start)

	duration := base.End.Sub(base.Start)
	var out []model.Event
	for _, occ := range r.Between(dayStart.Add(-duration), dayEnd, true) {
		ev := base
		if allDay {
			ev.Start = truncateToDate(occ)
			ev.End = ev.Start.Add(duration)
		} else {
			ev.Start = occ.UTC()
			ev.End = ev.Start.Add(duration)
		}
		if startsWithin(ev, dayStart, dayEnd) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func startsWithin(ev model.Event, dayStart, dayEnd time.Time) bool {
	return !ev.Start.Before(dayStart) && ev.Start.Before(dayEnd)
}

func propValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

// isDateOnly reports whether DTSTART is a date-only value (VALUE=DATE or
// a bare YYYYMMDD payload).
func isDateOnly(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(p.Value, "T")
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
