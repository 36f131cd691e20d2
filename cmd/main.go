package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"toaletna-api/internal/cache"
	domainrepo "toaletna-api/internal/domain/repository"
	"toaletna-api/internal/domain/service"
	"toaletna-api/internal/handler"
	"toaletna-api/internal/infrastructure/database"
	fsinfra "toaletna-api/internal/infrastructure/firestore"
	repoimpl "toaletna-api/internal/repository"
	"toaletna-api/internal/usecase"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using system environment variables")
	}

	store, closer, err := buildStore()
	if err != nil {
		log.Fatalf("point store initialization failed: %v", err)
	}
	if closer != nil {
		defer closer()
	}

	regionCache := cache.New(cacheConfigFromEnv(), nil)
	coordinator := service.NewFetchCoordinator(store, regionCache, service.DefaultCoordinatorConfig(), nil)
	clusterer := service.NewClusterer(service.DefaultClusterConfig())
	mapUseCase := usecase.NewMapUseCase(coordinator, clusterer, store)

	toiletsHandler := handler.NewToiletsHandler(mapUseCase)

	router := gin.Default()
	api := router.Group("/api")
	{
		api.GET("/toilets", toiletsHandler.GetRegion)
		api.GET("/toilets/nearby", toiletsHandler.FindNearby)
		api.POST("/toilets", toiletsHandler.CreateToilet)
		api.DELETE("/toilets/:id", toiletsHandler.DeleteToilet)
		api.GET("/cache/stats", toiletsHandler.CacheStats)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "healthy", "service": "toaletna-api"})
		})
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Printf("toaletna-api server starting on :%s...\n", port)
	log.Fatal(router.Run(":" + port))
}

// buildStore selects the point store backend via STORE_BACKEND:
// supabase (default), postgres, or firestore.
func buildStore() (domainrepo.ToiletsRepository, func(), error) {
	backend := os.Getenv("STORE_BACKEND")
	if backend == "" {
		backend = "supabase"
	}

	switch backend {
	case "supabase":
		client, err := database.NewSupabaseClient()
		if err != nil {
			return nil, nil, err
		}
		if err := client.HealthCheck(); err != nil {
			return nil, nil, err
		}
		log.Printf("using Supabase point store")
		return repoimpl.NewSupabaseToiletsRepository(client), nil, nil

	case "postgres":
		client, err := database.NewPostgreSQLClientWithRetry(5, 2*time.Second)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("using Postgres/PostGIS point store")
		return repoimpl.NewPostgresToiletsRepository(client), func() { client.Close() }, nil

	case "firestore":
		projectID := os.Getenv("FIRESTORE_PROJECT_ID")
		if projectID == "" {
			return nil, nil, fmt.Errorf("FIRESTORE_PROJECT_ID environment variable is not set")
		}
		client, err := fsinfra.NewFirestoreClient(context.Background(), projectID)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("using Firestore point store (project %s)", projectID)
		return repoimpl.NewFirestoreToiletsRepository(client.GetClient()), func() { client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q (want supabase, postgres or firestore)", backend)
	}
}

// cacheConfigFromEnv starts from defaults and applies env overrides.
func cacheConfigFromEnv() cache.Config {
	cfg := cache.DefaultConfig()
	if raw := os.Getenv("CACHE_MAX_ENTRIES"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.MaxEntries = v
		}
	}
	if raw := os.Getenv("CACHE_FRESH_MINUTES"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.FreshWindow = time.Duration(v) * time.Minute
		}
	}
	if raw := os.Getenv("CACHE_CEILING_HOURS"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.HardCeiling = time.Duration(v) * time.Hour
		}
	}
	return cfg
}
