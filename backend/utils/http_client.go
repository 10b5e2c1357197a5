package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"micro-crm/backend/utils/logging"

	"github.com/sony/gobreaker"
)

// NewHTTPClient returns the client used for service-to-service calls.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   2 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// NewCircuitBreaker opens after more than three consecutive failures and
// lets a single probe through once timeout has elapsed.
func NewCircuitBreaker(name string, timeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
}

// Getenv returns the environment value for key or fallback when unset.
func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// DurationEnv parses key as a time.Duration, falling back on error.
func DurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logging.Logger.Warnf("Event ID: CONFIG_INVALID_DURATION, Description: %s=%q is not a duration, using %s", key, v, fallback)
		return fallback
	}
	return d
}

// GetJSON decodes a GET response into out. A 404 yields found=false and no
// error so that missing records do not trip the breaker. userID, when set, is
// forwarded in the X-User-ID header.
func GetJSON(ctx context.Context, client *http.Client, breaker *gobreaker.CircuitBreaker, endpoint, userID string, out any) (bool, error) {
	result, err := breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return false, err
		}
		if userID != "" {
			req.Header.Set(UserIDHeader, userID)
		}

		resp, err := client.Do(req)
		if err != nil {
			return false, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return false, nil
		case resp.StatusCode != http.StatusOK:
			return false, fmt.Errorf("GET %s returned %d", endpoint, resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("failed to decode %s: %w", endpoint, err)
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}
