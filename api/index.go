package api

import (
	"net/http"
	"sync"

	"cretan-guru/config"
	_ "cretan-guru/docs"
	"cretan-guru/libs"
	"cretan-guru/middleware"
	"cretan-guru/routes"
	"cretan-guru/services"

	"github.com/gin-gonic/gin"
)

var (
	router *gin.Engine
	once   sync.Once
)

// initApp wires the router once per serverless instance; the kafka writer lives as long as the instance.
func initApp() {
	once.Do(func() {
		gin.SetMode(gin.ReleaseMode)

		config.LoadConfig()
		logger := libs.NewLogger(config.AppConfig.AppEnv, config.AppConfig.LogLevel)

		config.ConnectDB()
		config.ConnectRedis()

		var publisher services.EventPublisher = services.NopPublisher{}
		if len(config.AppConfig.KafkaBrokers) > 0 {
			publisher = libs.NewKafkaPublisher(config.AppConfig.KafkaBrokers, logger)
		}

		router = gin.New()
		router.Use(gin.Recovery())
		router.Use(middleware.CORSMiddleware(config.AppConfig.OriginURL))

		routes.SetupRoutes(router, logger, publisher)
	})
}

func Handler(w http.ResponseWriter, r *http.Request) {
	initApp()
	router.ServeHTTP(w, r)
}
