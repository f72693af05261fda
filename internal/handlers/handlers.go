package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"chatrelay/api/internal/config"
	"chatrelay/api/internal/middleware"
	"chatrelay/api/internal/models"
	"chatrelay/api/internal/realtime"
	"chatrelay/api/internal/repository"
	"chatrelay/api/internal/service"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	history     *service.HistoryService
	hub         *realtime.Hub
	db          *pgxpool.Pool
	cache       *redis.Client
	users       *repository.UserRepository
	messages    *repository.MessageRepository
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	auth := service.NewAuthService(userRepo, cfg, log)
	history := service.NewHistoryService(messageRepo, cache, log)
	hub := realtime.NewHub(history, cfg.Realtime, log)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: auth,
		history:     history,
		hub:         hub,
		db:          db,
		cache:       cache,
		users:       userRepo,
		messages:    messageRepo,
	}
}

// Hub exposes the realtime hub for lifecycle management and the jobs
// scheduler.
func (h HandlerSet) Hub() *realtime.Hub {
	return h.hub
}

// Messages exposes the message repository for the jobs scheduler.
func (h HandlerSet) Messages() *repository.MessageRepository {
	return h.messages
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)

		v1.GET("/messages", middleware.Auth(h.cfg), h.ListMessages)
		v1.GET("/ws", h.ServeWS)

		admin := v1.Group("/admin")
		admin.Use(
			middleware.Auth(h.cfg),
			middleware.RequireRoles(models.UserRoleAdmin),
		)
		admin.GET("/stats", h.AdminStats)
	}
}
