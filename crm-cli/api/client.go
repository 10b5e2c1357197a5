// Package api is a small client for the gateway's REST endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrUnauthorized = errors.New("not authenticated")

// Error is a non-2xx response decoded from the services' error body.
type Error struct {
	Status int    `json:"-"`
	Kind   string `json:"error"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Kind, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
}

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

type Task struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"projectId"`
	ProjectName     string     `json:"projectName,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Status          string     `json:"status"`
	AssignedTo      string     `json:"assignedTo,omitempty"`
	AssignedToEmail string     `json:"assignedToEmail,omitempty"`
	DueDate         *time.Time `json:"dueDate,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type Transitions struct {
	TaskID      string   `json:"taskId"`
	Status      string   `json:"status"`
	Actor       string   `json:"actor"`
	Transitions []string `json:"transitions"`
}

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatorID   string    `json:"creatorId"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ProjectPage struct {
	Items   []Project `json:"items"`
	Total   int64     `json:"total"`
	HasMore bool      `json:"has_more"`
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// WithToken returns a copy that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	copied := *c
	copied.token = token
	return &copied
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, &out)
	return &out, err
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{"name": name, "email": email, "password": password}, &out)
	return &out, err
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out)
	return &out, err
}

// ListTasks lists a project's tasks, or every task when projectID is empty.
func (c *Client) ListTasks(ctx context.Context, projectID string) ([]Task, error) {
	path := "/api/tasks/"
	if projectID != "" {
		path = "/api/tasks/project/" + url.PathEscape(projectID)
	}
	out := []Task{}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Transition(ctx context.Context, taskID, status string) (*Task, error) {
	var out Task
	err := c.do(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(taskID)+"/transition", map[string]string{"status": status}, &out)
	return &out, err
}

func (c *Client) Transitions(ctx context.Context, taskID string) (*Transitions, error) {
	var out Transitions
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(taskID)+"/transitions", nil, &out)
	return &out, err
}

func (c *Client) ListProjects(ctx context.Context, skip, limit int) (*ProjectPage, error) {
	var out ProjectPage
	path := fmt.Sprintf("/api/projects/?skip=%d&limit=%d", skip, limit)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return &out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(apiErr)
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %v", ErrUnauthorized, apiErr)
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
