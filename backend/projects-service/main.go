package main

import (
	"context"
	"fmt"
	"time"

	"micro-crm/backend/projects-service/handlers"
	"micro-crm/backend/projects-service/repository"
	"micro-crm/backend/projects-service/services"
	"micro-crm/backend/utils"
	"micro-crm/backend/utils/logging"

	"github.com/gorilla/mux"
)

func main() {
	logging.InitLogger("projects-service")
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Projects Service...")
	utils.LoadEnv()

	mongoURI := utils.Getenv("MONGO_URI", "mongodb://localhost:27017")
	dbName := utils.Getenv("MONGO_DB_NAME", "crm")

	client, err := utils.ConnectMongo(mongoURI)
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Connected to MongoDB database %s", dbName)

	db := client.Database(dbName)
	projectRepo := repository.NewProjectRepository(db.Collection("projects"))
	memberRepo := repository.NewMemberRepository(db.Collection("project_members"))
	roleRepo := repository.NewRoleRepository(db.Collection("roles"))
	customerRepo := repository.NewCustomerRepository(db.Collection("customers"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := projectRepo.EnsureIndexes(ctx); err != nil {
		logging.Logger.Warnf("Event ID: DB_INDEX_FAILED, Description: %v", err)
	}
	if err := memberRepo.EnsureIndexes(ctx); err != nil {
		logging.Logger.Warnf("Event ID: DB_INDEX_FAILED, Description: %v", err)
	}
	cancel()

	httpClient := utils.NewHTTPClient()
	usersClient := services.NewUsersClient(
		utils.Getenv("USERS_SERVICE_URL", "http://users-service:8001"),
		httpClient,
		utils.NewCircuitBreaker("UsersServiceCB", 2*time.Second),
	)
	tasksClient := services.NewTasksClient(
		utils.Getenv("TASKS_SERVICE_URL", "http://tasks-service:8004"),
		httpClient,
		utils.NewCircuitBreaker("TasksServiceCB", 5*time.Second),
	)

	projectService := services.NewProjectService(projectRepo, memberRepo, roleRepo, customerRepo, usersClient, tasksClient)
	projectHandler := handlers.NewProjectHandler(projectService)

	r := mux.NewRouter()
	projectHandler.Register(r)

	addr := fmt.Sprintf(":%s", utils.Getenv("SERVER_PORT", "8003"))
	err = utils.Serve(addr, utils.EnableCORS(r), func() {
		_ = client.Disconnect(context.Background())
	})
	if err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed: %v", err)
	}
}
