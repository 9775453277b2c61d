package main

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"guardedheart/backend/internal/api/handler"
	"guardedheart/backend/internal/chathub"
	"guardedheart/backend/internal/config"
	"guardedheart/backend/internal/models"
	"guardedheart/backend/internal/storage"
	"guardedheart/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies() (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(config.DatabaseDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: config.RedisAddr(),
	})
	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Therapist{},
		&models.PendingUser{},
		&models.OnlineTherapist{},
		&models.ActiveConversation{},
		&models.ChatTranscript{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting GuardedHeart Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb)

	hub := chathub.NewHub(s)
	hub.RecoverState()

	if token := config.TelegramBotToken(); token != "" {
		chatID, err := strconv.ParseInt(config.TelegramAdminChatID(), 10, 64)
		if err != nil {
			log.Fatalf("TELEGRAM_ADMIN_CHAT_ID must be numeric: %v", err)
		}
		notifier, err := telegram.NewNotifier(token, chatID)
		if err != nil {
			log.Fatalf("Failed to start ops notifier: %v", err)
		}
		hub.Alerter = notifier
	}

	go hub.Run(context.Background())

	r := gin.Default()
	h := handler.NewHandler(hub, s)

	api := r.Group("/api")
	{
		api.POST("/session", h.StartSession)
		api.GET("/session", h.RequireRole(models.RoleUser), h.GetSession)
		api.DELETE("/session", h.RequireRole(models.RoleUser), h.LeaveSession)

		api.POST("/therapist/login", h.TherapistLogin)
		api.GET("/therapist/waiting", h.RequireRole(models.RoleTherapist), h.WaitingRoom)
	}
	r.GET("/ws", h.ServeWebSocket)

	server := &http.Server{
		Addr:           config.ListenAddr(),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
