package main

import (
	"log"

	"cretan-guru/config"
	_ "cretan-guru/docs"
	"cretan-guru/libs"
	"cretan-guru/middleware"
	"cretan-guru/routes"
	"cretan-guru/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()

	if config.AppConfig.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger := libs.NewLogger(config.AppConfig.AppEnv, config.AppConfig.LogLevel)
	defer logger.Sync()

	config.ConnectDB()
	defer config.CloseDB()

	config.ConnectRedis()
	defer config.CloseRedis()

	var publisher services.EventPublisher = services.NopPublisher{}
	if len(config.AppConfig.KafkaBrokers) > 0 {
		kafkaPublisher := libs.NewKafkaPublisher(config.AppConfig.KafkaBrokers, logger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Info("cart events enabled", zap.Strings("brokers", config.AppConfig.KafkaBrokers))
	}

	router := gin.Default()
	router.Use(middleware.CORSMiddleware(config.AppConfig.OriginURL))
	routes.SetupRoutes(router, logger, publisher)

	port := ":" + config.AppConfig.Port
	logger.Info("server starting",
		zap.String("port", port),
		zap.String("swagger", "http://localhost:"+config.AppConfig.Port+"/swagger/index.html"))

	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
