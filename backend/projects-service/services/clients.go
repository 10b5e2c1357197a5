package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"micro-crm/backend/projects-service/models"
	"micro-crm/backend/utils"

	"github.com/sony/gobreaker"
)

// UsersClient looks users up in users-service.
type UsersClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewUsersClient(baseURL string, client *http.Client, breaker *gobreaker.CircuitBreaker) *UsersClient {
	return &UsersClient{baseURL: strings.TrimRight(baseURL, "/"), client: client, breaker: breaker}
}

func (c *UsersClient) GetUser(ctx context.Context, userID string) (*models.UserSummary, error) {
	var user models.UserSummary
	endpoint := fmt.Sprintf("%s/api/users/%s", c.baseURL, url.PathEscape(userID))
	found, err := utils.GetJSON(ctx, c.client, c.breaker, endpoint, "", &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrUserNotFound
	}
	return &user, nil
}

// TasksClient asks tasks-service to drop the tasks of a deleted project.
type TasksClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewTasksClient(baseURL string, client *http.Client, breaker *gobreaker.CircuitBreaker) *TasksClient {
	return &TasksClient{baseURL: strings.TrimRight(baseURL, "/"), client: client, breaker: breaker}
}

func (c *TasksClient) DeleteProjectTasks(ctx context.Context, ownerID, projectID string) error {
	endpoint := fmt.Sprintf("%s/api/tasks/project/%s", c.baseURL, url.PathEscape(projectID))
	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set(utils.UserIDHeader, ownerID)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		// tasks-service answers 404 when it no longer knows the project.
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("tasks-service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil, nil
	})
	return err
}
