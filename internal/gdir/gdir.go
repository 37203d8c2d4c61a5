// Package gdir lists Google Group membership over the Admin Directory
// REST API, impersonating a workspace admin.
package gdir

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"statuswatch/internal/googleapi"
)

const baseURL = "https://admin.googleapis.com/admin/directory/v1"

// Source implements directory.Source over the Admin Directory API.
type Source struct {
	client *http.Client
}

// NewSource builds a directory source impersonating adminSubject.
func NewSource(ctx context.Context, creds *googleapi.Credentials, adminSubject string) (*Source, error) {
	hc, err := creds.Client(ctx, adminSubject, googleapi.ScopeGroupMembers)
	if err != nil {
		return nil, err
	}
	hc.Timeout = 15 * time.Second
	return &Source{client: hc}, nil
}

type member struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

type membersPage struct {
	Members       []member `json:"members"`
	NextPageToken string   `json:"nextPageToken"`
}

// GroupMembers returns the email addresses of all USER members of the
// group, following pagination.
func (s *Source) GroupMembers(ctx context.Context, group string) ([]string, error) {
	var emails []string
	pageToken := ""

	for {
		params := url.Values{}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}
		endpoint := fmt.Sprintf("%s/groups/%s/members", baseURL, url.PathEscape(group))
		if len(params) > 0 {
			endpoint += "?" + params.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("directory request failed: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("directory API error %d: %s", resp.StatusCode, string(body))
		}

		var page membersPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decoding directory response: %w", err)
		}
		for _, m := range page.Members {
			if m.Type == "USER" && m.Email != "" {
				emails = append(emails, m.Email)
			}
		}
		if page.NextPageToken == "" {
			return emails, nil
		}
		pageToken = page.NextPageToken
	}
}
