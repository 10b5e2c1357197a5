package main

import (
	"fmt"

	"micro-crm/backend/notifications-service/handlers"
	"micro-crm/backend/notifications-service/repositories"
	"micro-crm/backend/notifications-service/services"
	"micro-crm/backend/utils"
	"micro-crm/backend/utils/logging"

	"github.com/gorilla/mux"
)

func main() {
	logging.InitLogger("notifications-service")
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Notifications Service...")
	utils.LoadEnv()

	repo, err := repositories.NewNotificationRepo(utils.Getenv("CASS_DB", "127.0.0.1"))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Failed to initialize repository: %v", err)
	}
	if err := repo.CreateTable(); err != nil {
		logging.Logger.Fatalf("Event ID: DB_SCHEMA_FAILED, Description: %v", err)
	}

	handler := handlers.NewNotificationHandler(services.NewNotificationService(repo))
	router := mux.NewRouter()
	handler.Register(router)

	addr := fmt.Sprintf(":%s", utils.Getenv("SERVER_PORT", "8005"))
	if err := utils.Serve(addr, utils.EnableCORS(router), repo.CloseSession); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed: %v", err)
	}
}
