package main

import (
	"context"
	"fmt"
	"time"

	"micro-crm/backend/tasks-service/handlers"
	"micro-crm/backend/tasks-service/repository"
	"micro-crm/backend/tasks-service/services"
	"micro-crm/backend/utils"
	"micro-crm/backend/utils/logging"

	"github.com/gorilla/mux"
)

func main() {
	logging.InitLogger("tasks-service")
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Tasks Service...")
	utils.LoadEnv()

	mongoURI := utils.Getenv("MONGO_URI", "mongodb://localhost:27017")
	dbName := utils.Getenv("MONGO_DB_NAME", "crm")

	client, err := utils.ConnectMongo(mongoURI)
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Connected to MongoDB database %s", dbName)

	db := client.Database(dbName)
	taskRepo := repository.NewTaskRepository(db.Collection("tasks"))
	activityRepo := repository.NewActivityRepository(db.Collection("project_activities"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := taskRepo.EnsureIndexes(ctx); err != nil {
		logging.Logger.Warnf("Event ID: DB_INDEX_FAILED, Description: %v", err)
	}

	httpClient := utils.NewHTTPClient()
	projectsClient := services.NewProjectsClient(
		utils.Getenv("PROJECTS_SERVICE_URL", "http://projects-service:8003"),
		httpClient,
		utils.NewCircuitBreaker("ProjectsServiceCB", 2*time.Second),
	)
	usersClient := services.NewUsersClient(
		utils.Getenv("USERS_SERVICE_URL", "http://users-service:8001"),
		httpClient,
		utils.NewCircuitBreaker("UsersServiceCB", 2*time.Second),
	)
	notificationsClient := services.NewNotificationsClient(
		utils.Getenv("NOTIFICATIONS_SERVICE_URL", "http://notifications-service:8005"),
		httpClient,
		utils.NewCircuitBreaker("NotificationsServiceCB", 5*time.Second),
	)

	taskService := services.NewTaskService(taskRepo, activityRepo, projectsClient, usersClient, notificationsClient)
	taskHandler := handlers.NewTaskHandler(taskService)

	go taskService.RunOverdueScanner(ctx,
		utils.DurationEnv("OVERDUE_SCAN_INTERVAL", time.Hour),
		utils.DurationEnv("OVERDUE_SCAN_RETRY", 5*time.Minute),
	)

	r := mux.NewRouter()
	taskHandler.Register(r)

	addr := fmt.Sprintf(":%s", utils.Getenv("SERVER_PORT", "8004"))
	err = utils.Serve(addr, utils.EnableCORS(r), func() {
		cancel()
		_ = client.Disconnect(context.Background())
	})
	if err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed: %v", err)
	}
}
