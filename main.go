// main.go
package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"teammatcher/cache"
	"teammatcher/database"
	"teammatcher/handlers"
	"teammatcher/lock"
	"teammatcher/middleware"
	"teammatcher/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	validateEnvironment()

	// Initialize database
	database.InitDB()
	db := database.GetDB()

	// Mutual exclusion and cache. Without Redis the server falls back to
	// process-local locking, which is only safe for a single instance.
	locker, recommendCache := initRedis()

	userService := services.NewUserService(db, recommendCache)
	teamService := services.NewTeamService(db, locker)
	handlers.InitUserHandlers(userService)
	handlers.InitTeamHandlers(teamService)

	// Background recommend-cache warmer
	precache := services.NewPrecacheJob(userService, locker)
	precache.Start()
	defer precache.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    1 * 1024 * 1024, // 1MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "http://localhost:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	app.Use(middleware.RateLimitMiddleware())

	// API Routes
	api := app.Group("/api")

	// User routes; register/login get the stricter auth limiter
	userGroup := api.Group("/user")
	userGroup.Post("/register", middleware.AuthRateLimitMiddleware(), handlers.Register)
	userGroup.Post("/login", middleware.AuthRateLimitMiddleware(), handlers.Login)
	userGroup.Post("/logout", middleware.AuthMiddleware, handlers.Logout)
	userGroup.Get("/current", middleware.AuthMiddleware, handlers.GetCurrentUser)
	userGroup.Get("/search/tags", middleware.AuthMiddleware, handlers.SearchUsersByTags)
	userGroup.Post("/update", middleware.AuthMiddleware, handlers.UpdateUser)
	userGroup.Get("/recommend", middleware.AuthMiddleware, handlers.RecommendUsers)
	userGroup.Get("/match", middleware.AuthMiddleware, handlers.MatchUsers)

	// Team routes (all require authentication)
	teamGroup := api.Group("/team")
	teamGroup.Use(middleware.AuthMiddleware)
	teamGroup.Post("/add", handlers.AddTeam)
	teamGroup.Post("/update", handlers.UpdateTeam)
	teamGroup.Post("/join", handlers.JoinTeam)
	teamGroup.Post("/quit", handlers.QuitTeam)
	teamGroup.Post("/delete", handlers.DeleteTeam)
	teamGroup.Get("/get", handlers.GetTeam)
	teamGroup.Get("/list", handlers.ListTeams)
	teamGroup.Get("/list/my/create", handlers.ListMyCreatedTeams)
	teamGroup.Get("/list/my/join", handlers.ListMyJoinedTeams)

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"version":   "1.0.0",
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("HTTP server starting on port %s", port)
	log.Printf("Environment: %s", getEnv("APP_ENV", "development"))

	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start HTTP server:", err)
	}
}

// initRedis builds the locker and recommend cache from REDIS_ADDR.
func initRedis() (lock.Locker, *cache.RecommendCache) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Println("Warning: REDIS_ADDR not set, using process-local locks and no recommend cache")
		return lock.NewMemoryLocker(), nil
	}

	password := os.Getenv("REDIS_PASSWORD")
	dbNum := 0
	if v, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		dbNum = v
	}

	locker, err := lock.NewRedisLocker(addr, password, dbNum)
	if err != nil {
		log.Fatalf("Failed to connect to Redis at %s: %v", addr, err)
	}
	recommendCache, err := cache.NewRecommendCache(addr, password, dbNum)
	if err != nil {
		log.Fatalf("Failed to connect to Redis at %s: %v", addr, err)
	}
	log.Println("Redis connected")
	return locker, recommendCache
}

// validateEnvironment checks for required environment variables
func validateEnvironment() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("FATAL: JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("FATAL: JWT_SECRET must be at least 32 characters long")
	}

	if os.Getenv("APP_ENV") == "production" {
		if os.Getenv("REDIS_ADDR") == "" {
			log.Println("WARNING: REDIS_ADDR not set; membership locks will not span instances")
		}
		corsOrigins := os.Getenv("CORS_ORIGINS")
		if corsOrigins == "" {
			log.Println("WARNING: CORS_ORIGINS not properly configured for production")
		}
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Don't expose internal errors in production
	if os.Getenv("APP_ENV") == "production" && code == 500 {
		message = "An error occurred. Please try again later."
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
