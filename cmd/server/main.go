package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/sokleng/ics-backend/internal/auth"
	"github.com/sokleng/ics-backend/internal/category"
	"github.com/sokleng/ics-backend/internal/notify"
	"github.com/sokleng/ics-backend/internal/product"
	"github.com/sokleng/ics-backend/internal/reports"
	"github.com/sokleng/ics-backend/internal/stock"
	"github.com/sokleng/ics-backend/internal/supplier"
	"github.com/sokleng/ics-backend/internal/user"
	"github.com/sokleng/ics-backend/pkg/database"
	"github.com/sokleng/ics-backend/pkg/middleware"
)

func main() {
	log := logrus.New()

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using system environment variables")
	}

	db, err := database.Connect()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}
	if err := database.Seed(db); err != nil {
		log.WithError(err).Fatal("Failed to seed database")
	}

	notifier := notify.NewTelegram(db, log)
	ledger := stock.NewLedger(db, notifier)

	r := gin.Default()
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// Auth (public)
		authHandler := auth.NewHandler(db)
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/logout", authHandler.Logout)

		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/auth/me", authHandler.Me)

			// Reads, available to every authenticated role
			productHandler := product.NewHandler(db, ledger)
			protected.GET("/products", productHandler.List)
			protected.GET("/products/:id", productHandler.Get)

			categoryHandler := category.NewHandler(db)
			protected.GET("/categories", categoryHandler.List)

			supplierHandler := supplier.NewHandler(db)
			protected.GET("/suppliers", supplierHandler.List)
			protected.GET("/suppliers/:id", supplierHandler.Get)

			stockHandler := stock.NewHandler(ledger)
			protected.GET("/inventory/transactions", stockHandler.Transactions)

			reportsHandler := reports.NewHandler(db, ledger)
			protected.GET("/reports/dashboard", reportsHandler.Dashboard)
			protected.GET("/reports/movements", reportsHandler.Movements)
			protected.GET("/reports/export", reportsHandler.Export)

			// Catalog management
			manage := protected.Group("")
			manage.Use(middleware.RequireRole(database.RoleAdmin, database.RoleManager))
			{
				manage.POST("/products", productHandler.Create)
				manage.PUT("/products/:id", productHandler.Update)
				manage.DELETE("/products/:id", productHandler.Delete)
				manage.POST("/categories", categoryHandler.Create)
				manage.POST("/suppliers", supplierHandler.Create)
				manage.PUT("/suppliers/:id", supplierHandler.Update)
				manage.DELETE("/suppliers/:id", supplierHandler.Delete)
			}

			// Stock movements
			stockOps := protected.Group("")
			stockOps.Use(middleware.RequireRole(database.RoleAdmin, database.RoleManager, database.RoleStockController))
			{
				stockOps.POST("/inventory/stock-in", stockHandler.StockIn)
				stockOps.POST("/inventory/stock-out", stockHandler.StockOut)
			}

			// User management
			admin := protected.Group("")
			admin.Use(middleware.RequireRole(database.RoleAdmin))
			{
				userHandler := user.NewHandler(db)
				admin.GET("/users", userHandler.List)
				admin.POST("/users", userHandler.Create)
				admin.DELETE("/users/:id", userHandler.Delete)
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.WithField("port", port).Info("Server starting")
	if err := r.Run(":" + port); err != nil {
		// Drain queued alerts before the process dies.
		notifier.Close()
		log.WithError(err).Fatal("Failed to start server")
	}
}
