// Package directory expands a directory group into per-user sessions,
// mapping each calendar identity to a live Zulip account across alias
// domains, and caches successful resolutions for the process lifetime.
package directory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"statuswatch/internal/log"
	"statuswatch/internal/session"
)

// ProbeResult is the three-valued outcome of a liveness probe.
type ProbeResult int

const (
	// ProbeLive means the account exists and its status is readable.
	ProbeLive ProbeResult = iota
	// ProbeUnreachable means the backend authoritatively reported no
	// such account (or no readable status).
	ProbeUnreachable
	// ProbeUnknown means the probe itself failed (transport error); the
	// account may or may not exist.
	ProbeUnknown
)

func (p ProbeResult) String() string {
	switch p {
	case ProbeLive:
		return "live"
	case ProbeUnreachable:
		return "unreachable"
	case ProbeUnknown:
		return "unknown"
	}
	return "unknown"
}

// Source lists the members of a directory group.
type Source interface {
	GroupMembers(ctx context.Context, group string) ([]string, error)
}

// SinkFactory probes a candidate account email and, when it is live,
// returns a status sink bound to it.
type SinkFactory interface {
	SinkFor(ctx context.Context, email string) (session.StatusSink, ProbeResult)
}

// Config carries the resolution settings.
type Config struct {
	// Group is the directory group to watch; empty means static mode.
	Group string
	// Static identities, used when Group is empty and as fallback when
	// the directory call fails.
	Static []string
	// AllowList substrings (case-insensitive); applied to raw membership
	// before any probe. Empty allows everyone.
	AllowList []string
	// AliasDomains are tried in order when the verbatim email fails.
	AliasDomains []string
	// Separator for the status text merge, passed through to sessions.
	Separator string
}

// Resolver builds and caches sessions for directory identities.
type Resolver struct {
	cfg   Config
	dir   Source
	sinks SinkFactory
	cal   session.CalendarSource

	mu    sync.Mutex
	cache map[string]*session.Session
}

// NewResolver constructs a Resolver. dir may be nil in static mode.
func NewResolver(cfg Config, dir Source, sinks SinkFactory, cal session.CalendarSource) *Resolver {
	return &Resolver{
		cfg:   cfg,
		dir:   dir,
		sinks: sinks,
		cal:   cal,
		cache: make(map[string]*session.Session),
	}
}

// candidates returns the account emails to probe for an identity: the
// verbatim email first, then the same local part under each alias domain.
func (r *Resolver) candidates(email string) []string {
	out := []string{email}
	local, _, found := strings.Cut(email, "@")
	if !found {
		return out
	}
	for _, domain := range r.cfg.AliasDomains {
		alt := local + "@" + domain
		if strings.EqualFold(alt, email) {
			continue
		}
		out = append(out, alt)
	}
	return out
}

// allowed applies the allow-list filter to a raw directory member.
func (r *Resolver) allowed(email string) bool {
	if len(r.cfg.AllowList) == 0 {
		return true
	}
	lower := strings.ToLower(email)
	for _, substr := range r.cfg.AllowList {
		if strings.Contains(lower, strings.ToLower(substr)) {
			return true
		}
	}
	return false
}

// Resolve maps one directory identity to a session. Successful
// resolutions are cached for the process lifetime; failures are not
// cached, so the identity is re-probed on the next scan.
func (r *Resolver) Resolve(ctx context.Context, email string) (*session.Session, bool) {
	r.mu.Lock()
	if s, ok := r.cache[email]; ok {
		r.mu.Unlock()
		return s, true
	}
	r.mu.Unlock()

	for _, candidate := range r.candidates(email) {
		sink, probe := r.sinks.SinkFor(ctx, candidate)
		switch probe {
		case ProbeLive:
			if candidate != email {
				log.Info("resolved identity via alias domain", "identity", email, "account", candidate)
			}
			s := session.New(email, candidate, r.cal, sink, r.cfg.Separator)
			r.mu.Lock()
			r.cache[email] = s
			r.mu.Unlock()
			return s, true
		case ProbeUnknown:
			log.Warn("liveness probe inconclusive", "candidate", candidate, "probe", probe)
		default:
			log.Debug("candidate not live", "candidate", candidate, "probe", probe)
		}
	}

	log.Warn("could not resolve identity to a live account, skipping", "identity", email)
	return nil, false
}

// CachedSessions returns the sessions resolved so far, sorted by
// identity, for the observability endpoint.
func (r *Resolver) CachedSessions() []*session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*session.Session, 0, len(r.cache))
	for _, s := range r.cache {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

// members returns the raw identity list for this scan: group membership
// when configured, falling back to the static list when the directory is
// unavailable or returns nothing.
func (r *Resolver) members(ctx context.Context) []string {
	if r.cfg.Group == "" || r.dir == nil {
		return r.cfg.Static
	}

	members, err := r.dir.GroupMembers(ctx, r.cfg.Group)
	if err != nil {
		log.Warn("directory listing failed, using static identities", "group", r.cfg.Group, "err", err)
		return r.cfg.Static
	}
	if len(members) == 0 {
		log.Warn("directory group is empty, using static identities", "group", r.cfg.Group)
		return r.cfg.Static
	}
	return members
}

// Sessions enumerates the current identities, applies the allow-list,
// resolves each one and returns the live sessions for this tick.
func (r *Resolver) Sessions(ctx context.Context) []*session.Session {
	var out []*session.Session
	for _, email := range r.members(ctx) {
		if !r.allowed(email) {
			log.Debug("identity filtered by allow-list", "identity", email)
			continue
		}
		if s, ok := r.Resolve(ctx, email); ok {
			out = append(out, s)
		}
	}
	return out
}
