// Package zulip is a minimal Zulip REST client covering exactly what the
// watcher needs: user lookup, status read/write and liveness probing.
package zulip

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

	"statuswatch/internal/directory"
	"statuswatch/internal/log"
	"statuswatch/internal/model"
	"statuswatch/internal/session"
)

// Client talks to one Zulip server with one bot account's credentials.
type Client struct {
	baseURL string
	email   string
	token   string
	http    *http.Client
}

func NewClient(serverURL, email, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(serverURL, "/") + "/api/v1",
		email:   email,
		token:   token,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// apiError is a Zulip API-level error (HTTP reached the server, the
// request was rejected). Distinguished from transport errors for the
// three-valued probe.
type apiError struct {
	Status int
	Msg    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("zulip API error %d: %s", e.Status, e.Msg)
}

type apiEnvelope struct {
	Result string `json:"result"`
	Msg    string `json:"msg"`
}

// do performs a request with basic auth and decodes the JSON body into
// out. Form may be nil for GET requests.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.email, c.token)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("zulip request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("decoding zulip response (%d): %w", resp.StatusCode, err)
	}
	if envelope.Result != "success" {
		return &apiError{Status: resp.StatusCode, Msg: envelope.Msg}
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

// User is a Zulip user record.
type User struct {
	ID       int64  `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsActive bool   `json:"is_active"`
}

// UserByEmail fetches a user record by email address.
func (c *Client) UserByEmail(ctx context.Context, email string) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(email), nil, &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// GetStatus reads a user's status. ok=false means the account exists but
// has no status set.
func (c *Client) GetStatus(ctx context.Context, userID int64) (model.UserStatus, bool, error) {
	var resp struct {
		Status model.UserStatus `json:"status"`
	}
	path := fmt.Sprintf("/users/%d/status", userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return model.UserStatus{}, false, err
	}
	return resp.Status, !resp.Status.IsZero(), nil
}

// SetStatus updates the acting account's status. Zulip only exposes a
// self-status endpoint, so the client must be constructed with the
// credentials of the account being updated.
func (c *Client) SetStatus(ctx context.Context, st model.UserStatus) error {
	reaction := st.ReactionType
	if reaction == "" {
		reaction = "unicode_emoji"
	}
	form := url.Values{
		"status_text":   {st.Text},
		"away":          {"false"},
		"emoji_name":    {st.EmojiName},
		"emoji_code":    {st.EmojiCode},
		"reaction_type": {reaction},
	}
	return c.do(ctx, http.MethodPost, "/users/me/status", form, nil)
}

// Sink binds the client to one resolved user and implements
// session.StatusSink.
type Sink struct {
	client *Client
	user   User
}

func (s *Sink) GetStatus(ctx context.Context) (model.UserStatus, bool, error) {
	return s.client.GetStatus(ctx, s.user.ID)
}

func (s *Sink) SetStatus(ctx context.Context, st model.UserStatus) error {
	return s.client.SetStatus(ctx, st)
}

// SinkFactory implements directory.SinkFactory: the liveness probe is a
// user lookup followed by a status read.
type SinkFactory struct {
	Client *Client
}

func (f *SinkFactory) SinkFor(ctx context.Context, email string) (session.StatusSink, directory.ProbeResult) {
	user, err := f.Client.UserByEmail(ctx, email)
	if err != nil {
		return nil, probeResult(err)
	}
	if !user.IsActive {
		log.Debug("zulip user is deactivated", "email", email)
		return nil, directory.ProbeUnreachable
	}
	if _, _, err := f.Client.GetStatus(ctx, user.ID); err != nil {
		return nil, probeResult(err)
	}
	return &Sink{client: f.Client, user: user}, directory.ProbeLive
}

// probeResult maps an error to the three-valued probe outcome: an
// authoritative API rejection is unreachable, anything else (transport,
// decode) is unknown.
func probeResult(err error) directory.ProbeResult {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return directory.ProbeUnreachable
	}
	return directory.ProbeUnknown
}
