package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"micro-crm/backend/users-service/handlers"
	"micro-crm/backend/users-service/middleware"
	"micro-crm/backend/users-service/repository"
	"micro-crm/backend/users-service/services"
	userutils "micro-crm/backend/users-service/utils"
	"micro-crm/backend/utils"
	"micro-crm/backend/utils/logging"

	"github.com/gorilla/mux"
)

func main() {
	logging.InitLogger("users-service")
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Users Service...")
	utils.LoadEnv()

	secret := utils.Getenv("JWT_SECRET", "")
	if secret == "" {
		logging.Logger.Fatal("Event ID: CONFIG_MISSING, Description: JWT_SECRET must be set")
	}

	client, err := utils.ConnectMongo(utils.Getenv("MONGO_URI", "mongodb://localhost:27017"))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	dbName := utils.Getenv("MONGO_DB_NAME", "crm")
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Connected to MongoDB database %s", dbName)

	userRepo := repository.NewUserRepository(client.Database(dbName).Collection("users"))
	if err := userRepo.EnsureIndexes(context.Background()); err != nil {
		logging.Logger.Warnf("Event ID: DB_INDEX_FAILED, Description: %v", err)
	}

	var blackList userutils.PasswordBlacklist
	if path := utils.Getenv("PASSWORD_BLACKLIST_FILE", ""); path != "" {
		blackList, err = userutils.LoadPasswordBlacklist(path)
		if err != nil {
			logging.Logger.Warnf("Event ID: BLACKLIST_LOAD_FAILED, Description: %v", err)
		} else {
			logging.Logger.Infof("Event ID: BLACKLIST_LOADED, Description: Loaded %d blacklisted passwords", len(blackList))
		}
	}

	tokens := userutils.NewTokenManager(secret, time.Duration(intEnv("ACCESS_TOKEN_EXPIRE_MINUTES", 60))*time.Minute)
	userService := services.NewUserService(userRepo, tokens, blackList)
	userHandler := &handlers.UserHandler{
		Service:     userService,
		Tokens:      tokens,
		AuthLimiter: middleware.NewRateLimiter(intEnv("RATE_LIMIT_AUTH_PER_MIN", 5)),
		APILimiter:  middleware.NewRateLimiter(intEnv("RATE_LIMIT_API_PER_MIN", 60)),
	}

	r := mux.NewRouter()
	userHandler.Register(r)

	addr := fmt.Sprintf(":%s", utils.Getenv("SERVER_PORT", "8001"))
	err = utils.Serve(addr, utils.EnableCORS(r), func() {
		_ = client.Disconnect(context.Background())
	})
	if err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed: %v", err)
	}
}

func intEnv(key string, fallback int) int {
	v, err := strconv.Atoi(utils.Getenv(key, strconv.Itoa(fallback)))
	if err != nil || v < 1 {
		logging.Logger.Warnf("Event ID: CONFIG_INVALID_INT, Description: %s is not a positive integer, using %d", key, fallback)
		return fallback
	}
	return v
}
