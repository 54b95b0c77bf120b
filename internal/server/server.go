package server

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"anoa.com/alumninetwork/internal/config"
	"anoa.com/alumninetwork/internal/jobs"
	"anoa.com/alumninetwork/internal/middleware"
	"anoa.com/alumninetwork/pkg/mailer"
	"anoa.com/alumninetwork/pkg/password"
	"anoa.com/alumninetwork/pkg/ratelimit"
	"anoa.com/alumninetwork/pkg/storage"

	chatHttp "anoa.com/alumninetwork/internal/modules/chat/delivery/http"
	chatRepo "anoa.com/alumninetwork/internal/modules/chat/repository"
	chatService "anoa.com/alumninetwork/internal/modules/chat/service"
	"anoa.com/alumninetwork/internal/modules/chat/ws"

	searchService "anoa.com/alumninetwork/internal/modules/search/service"

	signupHttp "anoa.com/alumninetwork/internal/modules/signup/delivery/http"
	signupRepo "anoa.com/alumninetwork/internal/modules/signup/repository"
	signupService "anoa.com/alumninetwork/internal/modules/signup/service"

	userHttp "anoa.com/alumninetwork/internal/modules/user/delivery/http"
	userRepo "anoa.com/alumninetwork/internal/modules/user/repository"
	userService "anoa.com/alumninetwork/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

// NewServer wires every module and starts the background workers, which stop when ctx is cancelled.
func NewServer(ctx context.Context, cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	users := userRepo.NewUserRepository(db)
	loginLogs := userRepo.NewLoginLogRepository(db)
	hasher := password.NewBcryptHasher(0)

	imageStorage := newImageStorage(cfg)
	userIndex := newUserIndex(cfg)

	sender := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})

	authSvc := userService.NewAuthService(users, loginLogs, hasher, userIndex, userService.Options{
		Secret:   cfg.JWTSecret,
		TokenTTL: cfg.JWTTTL,
	})
	userHandler := userHttp.NewUserHandler(authSvc)

	signupSvc := signupService.NewSignupService(
		signupRepo.NewRepository(db),
		users,
		hasher,
		sender,
		imageStorage,
		userIndex,
		ratelimit.New(redisClient),
		signupService.Options{
			OTPTTL:       cfg.OTPTTL,
			OTPRateLimit: cfg.OTPRateLimit,
			AdminEmail:   cfg.AdminNotifyEmail,
			From:         cfg.MailFrom,
		},
	)
	signupHandler := signupHttp.NewSignupHandler(signupSvc)

	hub := ws.NewHub()
	go hub.Run(ctx)

	chatSvc := chatService.NewChatService(chatRepo.NewMessageRepository(db), users, nil)
	chatHandler := chatHttp.NewChatHandler(chatSvc, hub)

	scheduler := jobs.NewScheduler()
	if err := scheduler.Register(jobs.NewOTPCleanupJob(signupSvc, cfg.OTPCleanupEvery)); err != nil {
		log.Printf("failed to register OTP cleanup job: %v", err)
	}
	scheduler.Start(ctx)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz"},
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMiddleware := middleware.NewAuthMiddleware(users, cfg.JWTSecret)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/login", userHandler.Login)
		auth.POST("/staff/login", userHandler.StaffLogin)
		auth.POST("/signup/otp", signupHandler.IssueOTP)
		auth.POST("/signup", signupHandler.Submit)
	}
	api.POST("/admin/login", userHandler.AdminLogin)

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.GET("/signups", signupHandler.ListPending)
			adminGroup.POST("/signups/approve", signupHandler.Approve)
			adminGroup.DELETE("/signups", signupHandler.Deny)
			adminGroup.POST("/signups/deny", signupHandler.Deny)
		}

		protected.GET("/users/me/logins", userHandler.LoginHistory)
		protected.GET("/users/search", userHandler.SearchUsers)
		protected.GET("/profile/:username", userHandler.GetProfile)

		chat := protected.Group("/chat")
		{
			chat.GET("/ws/:room_id", chatHandler.ServeWS)
			chat.GET("/rooms/:room_name", chatHandler.GetRoom)
			chat.GET("/available", chatHandler.AvailableChats)
			chat.POST("/messages/:receiver_id", chatHandler.CreateMessage)
		}
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

const shutdownTimeout = 10 * time.Second

// Run listens on addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve drains in-flight requests for up to shutdownTimeout once ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", ln.Addr())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func newImageStorage(cfg *config.Config) storage.ImageStorage {
	if cfg.CloudinaryCloudName == "" && os.Getenv("CLOUDINARY_URL") == "" {
		log.Println("Cloudinary not configured, signup photos will be ignored")
		return nil
	}

	imageStorage, err := storage.NewCloudinaryStorage(storage.CloudinaryConfig{
		CloudName:    cfg.CloudinaryCloudName,
		APIKey:       cfg.CloudinaryAPIKey,
		APISecret:    cfg.CloudinaryAPISecret,
		UploadFolder: cfg.CloudinaryUploadFolder,
	})
	if err != nil {
		log.Printf("failed to initialize cloudinary storage: %v", err)
		return nil
	}
	return imageStorage
}

func newUserIndex(cfg *config.Config) searchService.UserIndex {
	meiliHost := cfg.MeiliSearchHost
	if meiliHost == "" {
		log.Println("Meilisearch not configured, user search falls back to the database")
		return nil
	}
	if !strings.HasPrefix(meiliHost, "http") {
		meiliHost = "http://" + meiliHost + ":7700"
	}

	meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	return searchService.NewMeiliSearchService(meiliClient)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, origin := range strings.Split(allowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
