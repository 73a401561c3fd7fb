// Package api implements the HTTP client for the task-assignment API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/psybot/psytui/internal/model"
	"github.com/psybot/psytui/internal/session"
)

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 15 * time.Second

// Client calls the task-assignment API. The session supplies the bearer
// token; the cookie jar keeps the credentialed login cookie.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Session
}

// New constructs a Client for the given base URL.
func New(baseURL string, sess *session.Session, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid api base URL: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Jar: jar, Timeout: timeout},
		session:    sess,
	}, nil
}

// Register creates an account. No token is issued; the user logs in
// separately.
func (c *Client) Register(ctx context.Context, name, email, password string) (model.User, error) {
	payload := map[string]string{"name": name, "email": email, "password": password}
	var user model.User
	if err := c.do(ctx, http.MethodPost, "/api/users/register", nil, payload, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// Login exchanges credentials for an access token. The caller owns
// storing the token in the session.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	payload := map[string]string{"email": email, "password": password}
	var token model.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, payload, &token); err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", &Error{Kind: KindTransport, Message: "login response missing access token"}
	}
	return token.AccessToken, nil
}

// TodayTask fetches today's task for the current user. An absent task is
// not an error: it returns nil, nil.
func (c *Client) TodayTask(ctx context.Context) (*model.Task, error) {
	var task model.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/today", nil, nil, &task); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// Tasks fetches the full task history for the current user.
func (c *Client) Tasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CompleteTask marks a task completed and returns the server's view of it.
func (c *Client) CompleteTask(ctx context.Context, id int64) (model.Task, error) {
	var resp model.CompleteResponse
	path := fmt.Sprintf("/api/tasks/complete/%d", id)
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &resp); err != nil {
		return model.Task{}, err
	}
	return resp.Task, nil
}

// Progress fetches the aggregate progress snapshot.
func (c *Client) Progress(ctx context.Context) (*model.Progress, error) {
	var progress model.Progress
	if err := c.do(ctx, http.MethodGet, "/api/progress", nil, nil, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// Users lists all users (admin only).
func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.do(ctx, http.MethodGet, "/api/admin/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Exercises fetches the ordered exercise list (admin only).
func (c *Client) Exercises(ctx context.Context) ([]string, error) {
	var exercises []string
	if err := c.do(ctx, http.MethodGet, "/api/admin/exercises", nil, nil, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// AddExercise appends an exercise. The response body is the authoritative
// post-mutation list; no local splice is applied.
func (c *Client) AddExercise(ctx context.Context, text string) ([]string, error) {
	query := url.Values{"text": []string{text}}
	var exercises []string
	if err := c.do(ctx, http.MethodPost, "/api/admin/exercises", query, nil, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// RemoveExercise removes the exercise at the given position. As with
// AddExercise, the response body is the new list.
func (c *Client) RemoveExercise(ctx context.Context, index int) ([]string, error) {
	var exercises []string
	path := fmt.Sprintf("/api/admin/exercises/%d", index)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// UserTasks fetches the task list for a given user (admin only).
func (c *Client) UserTasks(ctx context.Context, userID int64) ([]model.Task, error) {
	var tasks []model.Task
	path := fmt.Sprintf("/api/admin/users/%d/tasks", userID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GenerateToday triggers today's-task generation for a user (admin only).
func (c *Client) GenerateToday(ctx context.Context, userID int64) (int64, error) {
	var resp model.GenerateResponse
	path := fmt.Sprintf("/api/admin/generate_today/%d", userID)
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &resp); err != nil {
		return 0, err
	}
	return resp.TaskID, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.session.Apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindTransport, Message: fmt.Sprintf("failed to decode response: %v", err)}
	}
	return nil
}
