package config

import (
	"os"
	"time"
)

const (
	// WebSocket timing.
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 4096

	// SendBufferSize is the per-client outbound buffer. A participant that
	// falls this far behind is treated as disconnected.
	SendBufferSize = 256

	// MatchInterval is the housekeeping tick: retry matching and purge
	// stale queue/directory entries.
	MatchInterval = 2 * time.Second

	// JWTTTL is how long an issued session token stays valid.
	JWTTTL = 72 * time.Hour
	// JWTIssuer is the iss claim on every token.
	JWTIssuer = "guardedheart-service"

	// PendingQueueKey is the redis sorted set mirroring the in-memory
	// pending queue, scored by enqueue time.
	PendingQueueKey = "pending_queue"
	// ConversationChannelPrefix prefixes the redis pub/sub channel that
	// carries the live transcript feed of one conversation.
	ConversationChannelPrefix = "conv:"
)

// getenv returns the variable or a fallback when unset or empty.
func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ListenAddr is the HTTP listen address.
func ListenAddr() string {
	return getenv("LISTEN_ADDR", ":8080")
}

// DatabaseDSN is the PostgreSQL connection string.
func DatabaseDSN() string {
	return getenv("DATABASE_DSN",
		"host=localhost user=user password=password dbname=guardedheart port=5432 sslmode=disable")
}

// RedisAddr is the redis host:port.
func RedisAddr() string {
	return getenv("REDIS_ADDR", "localhost:6379")
}

// JWTSecret is the HMAC key for session tokens.
func JWTSecret() []byte {
	return []byte(getenv("JWT_SECRET", "dev-only-insecure-secret"))
}

// TelegramBotToken enables the ops notifier when non-empty.
func TelegramBotToken() string {
	return os.Getenv("TELEGRAM_BOT_TOKEN")
}

// TelegramAdminChatID is the chat the ops notifier posts to.
func TelegramAdminChatID() string {
	return os.Getenv("TELEGRAM_ADMIN_CHAT_ID")
}
