package cmd

import (
	"context"
	"time"

	"statuswatch/internal/config"
	"statuswatch/internal/directory"
	"statuswatch/internal/gcal"
	"statuswatch/internal/gdir"
	"statuswatch/internal/googleapi"
	"statuswatch/internal/icsfeed"
	"statuswatch/internal/log"
	"statuswatch/internal/session"
	"statuswatch/internal/zulip"
)

// loadConfig loads and validates the config file and applies the log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log.SetLevel(log.ParseLevel(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildResolver wires the calendar sources, the Zulip sink factory and
// the optional directory source into a session resolver.
func buildResolver(ctx context.Context, cfg *config.Config) (*directory.Resolver, error) {
	creds, err := googleapi.LoadCredentials(cfg.Google.CredentialsFile)
	if err != nil {
		return nil, err
	}

	sources := []session.CalendarSource{gcal.NewSource(creds)}
	if len(cfg.LeaveFeeds) > 0 {
		feeds := make([]icsfeed.Feed, 0, len(cfg.LeaveFeeds))
		for _, f := range cfg.LeaveFeeds {
			feeds = append(feeds, icsfeed.Feed{Identity: f.Identity, URL: f.URL})
		}
		sources = append(sources, icsfeed.NewSource(feeds, cfg.CacheDir))
	}
	calendar := &session.MultiSource{Sources: sources}

	var dir directory.Source
	if cfg.Group != "" {
		dir, err = gdir.NewSource(ctx, creds, cfg.Google.AdminSubject)
		if err != nil {
			return nil, err
		}
	}

	zc := zulip.NewClient(cfg.Zulip.ServerURL, cfg.Zulip.Email, cfg.Zulip.APIToken)

	return directory.NewResolver(directory.Config{
		Group:        cfg.Group,
		Static:       cfg.Users,
		AllowList:    cfg.AllowList,
		AliasDomains: cfg.AliasDomains,
		Separator:    cfg.Separator,
	}, dir, &zulip.SinkFactory{Client: zc}, calendar), nil
}

// tick runs one full pass over all current identities, strictly
// sequentially.
func tick(ctx context.Context, resolver *directory.Resolver) {
	now := time.Now().UTC()
	sessions := resolver.Sessions(ctx)
	log.Debug("tick", "sessions", len(sessions))

	for _, s := range sessions {
		if ctx.Err() != nil {
			return
		}
		s.RunTick(ctx, now)
	}
}
