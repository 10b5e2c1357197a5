package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"micro-crm/backend/utils/logging"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserIDHeader carries the authenticated user id set by the api-gateway.
const UserIDHeader = "X-User-ID"

var sensitiveKeywords = []string{
	"password", "secret", "token", "api_key", "private",
	"database", "connection", "mongo", "localhost",
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
	Path   string `json:"path"`
}

// LoadEnv loads .env when present. A missing file is not an error in containers.
func LoadEnv() {
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Infof("Event ID: ENV_FILE_SKIPPED, Description: No .env file loaded: %v", err)
	}
}

// ConnectMongo connects and pings the server within a 10 second window.
func ConnectMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// EnableCORS answers preflight requests and sets the allowed origin from CORS_ORIGIN.
func EnableCORS(next http.Handler) http.Handler {
	origin := Getenv("CORS_ORIGIN", "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// UserID returns the caller id injected by the gateway, or "" when absent.
func UserID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserIDHeader))
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_FAILED, Description: %v", err)
	}
}

// WriteError writes an ErrorResponse. Server error details mentioning
// sensitive keywords are masked; client errors carry fixed messages.
func WriteError(w http.ResponseWriter, r *http.Request, status int, kind string, detail string) {
	if status >= http.StatusInternalServerError {
		detail = SanitizeErrorMessage(detail)
	}
	WriteJSON(w, status, ErrorResponse{
		Error:  kind,
		Detail: detail,
		Path:   r.URL.Path,
	})
}

// SanitizeErrorMessage hides messages that could leak credentials or infrastructure.
func SanitizeErrorMessage(message string) string {
	lower := strings.ToLower(message)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lower, keyword) {
			return "An error occurred while processing your request"
		}
	}
	return message
}

// Serve runs handler on addr until SIGINT/SIGTERM, then shuts down gracefully.
// onShutdown runs after the listener has stopped.
func Serve(addr string, handler http.Handler, onShutdown func()) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		logging.Logger.Infof("Event ID: SERVER_SHUTDOWN, Description: Received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
	}

	if onShutdown != nil {
		onShutdown()
	}
	return nil
}
