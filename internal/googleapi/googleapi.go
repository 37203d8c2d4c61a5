// Package googleapi builds authenticated HTTP clients from a Google
// service-account key with domain-wide delegation, impersonating a
// workspace user per client.
package googleapi

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
)

// OAuth scopes used by the watcher.
const (
	ScopeCalendarReadonly = "https://www.googleapis.com/auth/calendar.readonly"
	ScopeGroupMembers     = "https://www.googleapis.com/auth/admin.directory.group.member.readonly"
)

// Credentials is a loaded service-account key, reusable across subjects.
type Credentials struct {
	raw []byte
}

// LoadCredentials reads the service-account JSON key from disk.
func LoadCredentials(path string) (*Credentials, error) {
	if path == "" {
		return nil, fmt.Errorf("google credentials file not configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file %s: %w", path, err)
	}
	return &Credentials{raw: data}, nil
}

// Client returns an HTTP client authenticated as the service account,
// acting on behalf of subject for the given scopes. The token source
// caches and refreshes access tokens internally.
func (c *Credentials) Client(ctx context.Context, subject string, scopes ...string) (*http.Client, error) {
	conf, err := google.JWTConfigFromJSON(c.raw, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing service-account key: %w", err)
	}
	conf.Subject = subject
	return conf.Client(ctx), nil
}
