package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"micro-crm/backend/tasks-service/models"
	"micro-crm/backend/utils"
	"micro-crm/backend/utils/logging"

	"github.com/sony/gobreaker"
)

// ProjectsClient reads project ownership from projects-service.
type ProjectsClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewProjectsClient(baseURL string, client *http.Client, breaker *gobreaker.CircuitBreaker) *ProjectsClient {
	return &ProjectsClient{baseURL: strings.TrimRight(baseURL, "/"), client: client, breaker: breaker}
}

func (c *ProjectsClient) GetAccess(ctx context.Context, projectID string) (*models.ProjectAccess, error) {
	var access models.ProjectAccess
	endpoint := fmt.Sprintf("%s/api/projects/%s/access", c.baseURL, url.PathEscape(projectID))
	found, err := utils.GetJSON(ctx, c.client, c.breaker, endpoint, "", &access)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrProjectNotFound
	}
	return &access, nil
}

// UsersClient resolves user summaries from users-service.
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

// NotificationsClient posts task notifications to notifications-service.
type NotificationsClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewNotificationsClient(baseURL string, client *http.Client, breaker *gobreaker.CircuitBreaker) *NotificationsClient {
	return &NotificationsClient{baseURL: strings.TrimRight(baseURL, "/"), client: client, breaker: breaker}
}

func (c *NotificationsClient) Notify(ctx context.Context, userID, taskID, message string) error {
	payload, err := json.Marshal(map[string]string{
		"userId":  userID,
		"taskId":  taskID,
		"message": message,
	})
	if err != nil {
		return err
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/notifications/", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("notifications-service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil, nil
	})
	if err != nil {
		logging.Logger.Warnf("Event ID: NOTIFICATION_SEND_FAILED, Description: Notification for user %s on task %s failed: %v", userID, taskID, err)
	}
	return err
}
