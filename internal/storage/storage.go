package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dmchat/backend/internal/models"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("storage: duplicate key")
)

// Storage описує всі операції сховища, якими користується сервіс.
type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	SetPresence(ctx context.Context, userID string, online bool, at time.Time) error
	SetUserStatus(ctx context.Context, userID string, status models.UserStatus) error

	FindConversationByPair(ctx context.Context, pair pq.StringArray) (*models.Conversation, error)
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	SetLastMessage(ctx context.Context, conversationID, messageID string, at time.Time) error

	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	GetMessagesByIDs(ctx context.Context, ids []string) ([]models.Message, error)
	ListMessages(ctx context.Context, conversationID string, page models.Page) ([]models.Message, int64, error)
	MarkMessageDelivered(ctx context.Context, id string, at time.Time) (bool, error)
	MarkMessageRead(ctx context.Context, id string, at time.Time) (bool, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) ([]string, error)

	BanUser(ctx context.Context, userID string, ttl time.Duration) error
	UnbanUser(ctx context.Context, userID string) error
	IsUserBanned(ctx context.Context, userID string) (bool, error)
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Log   *zap.Logger
}

var _ Storage = (*Service)(nil)

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		DB:    db,
		Redis: rdb,
		Log:   log,
	}
}

// OpenPostgres відкриває пул з'єднань PostgreSQL.
// Помилки драйвера перекладаються в gorm.ErrDuplicatedKey та інші загальні помилки.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate створює таблиці та індекси.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.Message{},
	)
}

// OpenRedis parses a redis:// URL and checks connectivity.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

// translate maps gorm errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}
