package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"anoa.com/alumninetwork/internal/bootstrap"
	"anoa.com/alumninetwork/internal/config"
	"anoa.com/alumninetwork/internal/server"
	"anoa.com/alumninetwork/pkg/database"
	"anoa.com/alumninetwork/pkg/password"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect(cfg.DatabaseURL)
	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if err := bootstrap.SeedRoles(db); err != nil {
		log.Fatalf("failed to seed roles: %v", err)
	}

	adminEmail, adminPassword := cfg.AdminEmail, cfg.AdminPassword
	if cfg.IsDevelopment() && adminEmail == "" && adminPassword == "" {
		adminEmail, adminPassword = "admin@alumni.local", "admin123"
	}
	if adminEmail != "" || adminPassword != "" {
		if err := bootstrap.SeedAdminUser(db, password.NewBcryptHasher(0), adminEmail, adminPassword); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		// A second signal falls through to the default handler and kills the process.
		<-ctx.Done()
		stop()
	}()

	redisClient := connectRedis(ctx, cfg.RedisURL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	srv := server.NewServer(ctx, cfg, db, redisClient)

	if err := srv.Run(ctx, ":"+cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
	log.Println("Server stopped")
}

// connectRedis returns nil when redis is not configured or unreachable; rate limiting is then disabled.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		log.Println("REDIS_URL not set, OTP rate limiting disabled")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("invalid REDIS_URL: %v", err)
		return nil
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis unreachable, OTP rate limiting disabled: %v", err)
		_ = client.Close()
		return nil
	}
	return client
}
