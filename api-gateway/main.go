package main

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"micro-crm/backend/utils"
	"micro-crm/backend/utils/logging"
)

// route maps a path prefix to the service that owns it.
type route struct {
	prefix string
	target string
}

func routes() []route {
	users := utils.Getenv("USERS_SERVICE_URL", "http://users-service:8001")
	projects := utils.Getenv("PROJECTS_SERVICE_URL", "http://projects-service:8003")
	tasks := utils.Getenv("TASKS_SERVICE_URL", "http://tasks-service:8004")
	notifications := utils.Getenv("NOTIFICATIONS_SERVICE_URL", "http://notifications-service:8005")

	return []route{
		{"/api/auth/", users},
		{"/api/users/", users},
		{"/api/projects/", projects},
		{"/api/project-members/", projects},
		{"/api/roles/", projects},
		{"/api/customers/", projects},
		{"/api/tasks/", tasks},
		{"/api/notifications/", notifications},
	}
}

func newGateway(routes []route, secret []byte) (http.Handler, error) {
	mux := http.NewServeMux()
	for _, rt := range routes {
		proxy, err := reverseProxyURL(rt.target)
		if err != nil {
			return nil, err
		}
		mux.Handle(rt.prefix, proxy)
	}
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "api-gateway"})
	})
	return utils.EnableCORS(authMiddleware(mux, secret)), nil
}

func reverseProxyURL(target string) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream %q", target)
	}
	proxy := httputil.NewSingleHostReverseProxy(u)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logging.Logger.Errorf("Event ID: GATEWAY_UPSTREAM_FAILED, Description: %s %s -> %s: %v", r.Method, r.URL.Path, u.Host, err)
		utils.WriteError(w, r, http.StatusBadGateway, "Bad Gateway", "Upstream service unavailable")
	}
	return proxy, nil
}

func main() {
	logging.InitLogger("api-gateway")
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting API Gateway...")
	utils.LoadEnv()

	secret := utils.Getenv("JWT_SECRET", "")
	if secret == "" {
		logging.Logger.Fatal("Event ID: CONFIG_MISSING, Description: JWT_SECRET must be set")
	}

	handler, err := newGateway(routes(), []byte(secret))
	if err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_INVALID, Description: %v", err)
	}

	addr := fmt.Sprintf(":%s", utils.Getenv("SERVER_PORT", "8000"))
	if err := utils.Serve(addr, handler, nil); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed: %v", err)
	}
}
