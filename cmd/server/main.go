// cmd/server/main.go
package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"flare-backend/internal/config"
	"flare-backend/internal/database"
	"flare-backend/internal/handlers"
	"flare-backend/internal/middleware"
	"flare-backend/internal/storage"
)

func main() {
	cfg := config.Load()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	db, err := database.InitDB(cfg.DatabaseURL, !cfg.Production())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close(db)

	if err := database.MigrateDB(db); err != nil {
		logrus.WithError(err).Fatal("Failed to migrate database")
	}

	store, err := storage.New(cfg.MinIO)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize object storage")
	}

	r := gin.Default()
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	authLimit := middleware.NewIPRateLimiter(5, 15*time.Minute)
	uploadLimit := middleware.NewIPRateLimiter(10, 15*time.Minute)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"timestamp":   time.Now().UTC(),
			"environment": cfg.Environment,
		})
	})

	trials := r.Group("/api/trials")
	{
		trials.POST("/register",
			authLimit.Middleware("Too many authentication attempts, please try again later"),
			handlers.Register(db, cfg.JWTSecret))
		trials.POST("/login",
			authLimit.Middleware("Too many authentication attempts, please try again later"),
			handlers.Login(db, cfg.JWTSecret))
		trials.GET("/health", handlers.TrialsHealth(db))

		protected := trials.Group("")
		protected.Use(middleware.Authenticate(cfg.JWTSecret))
		{
			protected.GET("/profile", handlers.GetProfile(db))
			protected.POST("/upload-zip",
				uploadLimit.Middleware("Too many upload attempts, please try again later"),
				handlers.UploadZip(db, store))
			protected.POST("/upload-photos",
				uploadLimit.Middleware("Too many upload attempts, please try again later"),
				handlers.UploadPhotos(db, store))
			protected.GET("/download/:trialId", handlers.Download(db, store))
		}
	}

	feedback := r.Group("/api/feedback")
	{
		feedback.POST("/submit", handlers.SubmitFeedback(db, cfg.JWTSecret))
		feedback.GET("/health", handlers.FeedbackHealth(db))

		admin := feedback.Group("")
		admin.Use(middleware.Authenticate(cfg.JWTSecret))
		{
			admin.GET("/analytics", handlers.FeedbackAnalytics(db))
			admin.GET("/entries", handlers.FeedbackEntries(db))
		}
	}

	logrus.WithField("port", cfg.Port).Info("Server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("Failed to start server")
	}
}
