package configuration

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"Planora/internal/access"
	"Planora/internal/db"
	"Planora/internal/handler"
	"Planora/internal/hub"
	"Planora/internal/model"
	"Planora/internal/repo"
	"Planora/internal/service"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const defaultConfigPath = "../../shared/config.dev.json"

type Container struct {
	NotificationHandler handler.NotificationHandler
	ProjectHandler      handler.ProjectHandler
	Hub                 *hub.Hub
	Config              Config
	Logger              *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
}

func BuildContainer() (*Container, error) {
	configPath := os.Getenv("PLANORA_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	con, err := db.OpenConnection(config.ChatDatabase.Uri, config.ChatDatabase.Database)
	if err != nil {
		return nil, err
	}

	logger, _ := zap.NewProduction()

	actorMongo := db.NewRepository[model.Actor](con, config.ChatDatabase.ActorsCollection)
	projectMongo := db.NewRepository[model.Project](con, config.ChatDatabase.ProjectsCollection)
	messageMongo := db.NewRepository[model.Message](con, config.ChatDatabase.MessagesCollection)
	notificationMongo := db.NewRepository[model.Notification](con, config.ChatDatabase.NotificationsCollection)

	actorRepo := repo.NewActorRepository(actorMongo)
	projectRepo := repo.NewProjectRepository(projectMongo, logger)
	messageRepo := repo.NewMessageRepository(messageMongo, logger)
	notificationRepo := repo.NewNotificationRepository(notificationMongo, logger)

	resolver := access.NewResolver(projectRepo)
	validator := access.NewValidator(projectRepo, logger)

	Hub := hub.NewHub(validator, actorRepo, messageRepo, config.Server.AllowedOrigins)

	notificationService := service.NewNotificationService(notificationRepo, Hub, logger)
	Hub.SetNotificationMarker(notificationService)

	projectService := service.NewProjectService(projectRepo, messageRepo, resolver, validator, notificationService, Hub, logger)

	return &Container{
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		ProjectHandler:      handler.NewProjectHandler(projectService),
		Hub:                 Hub,
		Config:              *config,
		Logger:              logger,
		mongoClient:         con,
	}, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
