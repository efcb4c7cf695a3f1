package main

import (
	"log"
	"os"

	"convertly/internal/api"
	"convertly/internal/archive"
	"convertly/internal/config"
	"convertly/internal/convert"
	"convertly/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Set Gin mode (default to release mode)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	repo := buildRepository(cfg)
	dispatcher := convert.NewDispatcher(cfg.FFmpegBin, cfg.TesseractBin)

	var archiver api.Archiver
	if a := archive.NewS3Archiver(cfg); a != nil {
		archiver = a
		log.Printf("S3 archival enabled (bucket: %s)", cfg.S3Bucket)
	}

	h := api.NewHandler(cfg, repo, dispatcher, archiver)

	r := gin.Default()
	r.MaxMultipartMemory = 32 << 20
	r.Use(corsMiddleware())
	h.RegisterRoutes(r)

	log.Printf("convertly listening on :%s (upload dir: %s)", cfg.Port, cfg.UploadDir)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildRepository picks the record store: postgres when DATABASE_URL is
// set, redis when REDIS_ADDR is set, in-memory otherwise.
func buildRepository(cfg *config.Config) repository.ConversionRepository {
	if cfg.DatabaseURL != "" {
		repo, err := repository.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL: %v. Falling back to in-memory store.", err)
		} else {
			log.Println("Using PostgreSQL conversion store")
			return repo
		}
	}

	if cfg.RedisAddr != "" {
		repo, err := repository.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v. Falling back to in-memory store.", err)
		} else {
			log.Println("Using Redis conversion store")
			return repo
		}
	}

	log.Println("Using in-memory conversion store")
	return repository.NewMemory()
}

// corsMiddleware allows the landing page to call the API cross-origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
