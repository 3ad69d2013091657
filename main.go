package main

import (
	"time"

	"studio-app/config"
	"studio-app/database"
	routes "studio-app/internal/app/http"
	"studio-app/internal/infra/stripeclient"
	"studio-app/internal/reconcile"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	config.LoadEnv()
	database.InitDB()

	provider := stripeclient.New(config.STRIPE_SECRET_KEY, config.STRIPE_WEBHOOK_SECRET)
	engine := reconcile.New(database.DB, provider)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		DB:       database.DB,
		Provider: provider,
		Engine:   engine,
	})

	r.Run(":" + config.PORT)
}
