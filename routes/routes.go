package routes

import (
	"cretan-guru/config"
	"cretan-guru/controllers"
	"cretan-guru/middleware"
	"cretan-guru/repositories"
	"cretan-guru/services"
	"cretan-guru/utils"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

func SetupRoutes(router *gin.Engine, logger *zap.Logger, publisher services.EventPublisher) {
	tokens := utils.NewTokenIssuer(config.AppConfig.JWTSecret, config.AppConfig.JWTExpiry)

	productSvc := services.NewProductService(repositories.NewProductRepository(), config.RedisClient, logger)
	authSvc := services.NewAuthService(repositories.NewUserRepository(), tokens)

	cartCtrl := &controllers.CartController{
		Repo:          repositories.NewCartRepository(),
		Products:      productSvc,
		Publisher:     publisher,
		Logger:        logger,
		SessionMaxAge: config.AppConfig.SessionMaxAge,
		SecureCookies: config.AppConfig.AppEnv == "production",
	}
	authCtrl := &controllers.AuthController{Auth: authSvc, Cart: cartCtrl}
	productCtrl := &controllers.ProductController{Products: productSvc}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	router.POST("/auth/register", authCtrl.Register)
	router.POST("/auth/login", authCtrl.Login)
	router.GET("/products", productCtrl.GetAllProducts)
	router.GET("/products/:id", productCtrl.GetProductByID)

	auth := router.Group("/")
	auth.Use(middleware.AuthMiddleware(tokens))
	{
		auth.GET("/auth/profile", authCtrl.GetProfile)
		auth.POST("/cart/merge", cartCtrl.MergeCart)
	}

	RegisterCartRoutes(router.Group("/cart", middleware.OptionalAuth(tokens)), cartCtrl)
}

// RegisterCartRoutes mounts the visitor cart endpoints, which work with or without a signed-in user.
func RegisterCartRoutes(cart *gin.RouterGroup, ctrl *controllers.CartController) {
	cart.GET("", ctrl.GetCart)
	cart.DELETE("", ctrl.ClearCart)
	cart.POST("/items", ctrl.AddItem)
	cart.PATCH("/items/:productId", ctrl.UpdateItem)
	cart.DELETE("/items/:productId", ctrl.RemoveItem)
}
