package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"autoresearcher/pkg/archive"
	"autoresearcher/pkg/chat"
	"autoresearcher/pkg/config"
	"autoresearcher/pkg/database"
	"autoresearcher/pkg/embeddings"
	"autoresearcher/pkg/gemini"
	"autoresearcher/pkg/search"
	"autoresearcher/pkg/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	// Key problems surface per request (and on /health), the way the API
	// documents them, so startup only warns.
	if err := cfg.Validate(); err != nil {
		log.Printf("Warning: %v", err)
	}

	ctx := context.Background()

	model, err := gemini.NewModel(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("Failed to init Gemini model: %v", err)
	}
	llm := gemini.NewClient(model)

	var provider search.Provider
	switch cfg.SearchProvider {
	case "arxiv":
		provider = search.NewArxiv()
	default:
		provider = search.NewTavily(cfg.TavilyAPIKey)
	}

	svc := server.NewService(llm, provider)

	// The archive and everything built on it is optional: without
	// DATABASE_URL the API still answers research requests.
	var (
		store   *archive.Store
		chatSvc *chat.Service
		tools   *chat.ArchiveToolset
	)
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}

		embedder, err := embeddings.NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleAPIKey)
		if err != nil {
			log.Fatalf("Failed to init embedder: %v", err)
		}

		store = archive.NewStore(db)
		indexer := archive.NewIndexer(db, embedder, cfg.CollectionName)
		indexer.ChunkSize = cfg.ChunkSize
		indexer.ChunkOverlap = cfg.ChunkOverlap
		svc.Store = store
		svc.Indexer = indexer

		chatSvc, err = chat.NewService(ctx, db, store, cfg)
		if err != nil {
			log.Fatalf("Failed to init chat service: %v", err)
		}
		tools = chat.NewArchiveToolset(db, store, embedder, cfg)
	} else {
		log.Println("DATABASE_URL not set, running without archive and chat")
	}

	handler := server.NewHandler(svc, store, chatSvc, tools, cfg)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Allow all for dev
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Mcp-Session-Id"},
		ExposeHeaders:    []string{"Content-Length", "Mcp-Session-Id"},
		AllowCredentials: true,
	}))

	handler.RegisterRoutes(r)

	fmt.Printf("Server starting on port %s\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
