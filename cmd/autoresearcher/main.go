package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"autoresearcher/pkg/archive"
	"autoresearcher/pkg/config"
	"autoresearcher/pkg/database"
	"autoresearcher/pkg/embeddings"
	"autoresearcher/pkg/gemini"
	"autoresearcher/pkg/research"
	"autoresearcher/pkg/search"
)

var topic string

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	rootCmd := &cobra.Command{
		Use:   "autoresearcher",
		Short: "A terminal-based research agent",
		Long:  `AutoResearcher plans a research topic, searches the web step by step, scores the gathered sources and writes a cited report.`,
		Run: func(cmd *cobra.Command, args []string) {

			if !cmd.Flags().Changed("topic") {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)

				fmt.Print("Enter research topic: ")
				input, _ := reader.ReadString('\n')
				topic = strings.TrimSpace(input)
			}

			if strings.TrimSpace(topic) == "" {
				slog.Error("Topic cannot be empty")
				os.Exit(1)
			}

			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				slog.Error("Invalid configuration", "error", err)
				os.Exit(1)
			}

			ctx := context.Background()

			model, err := gemini.NewModel(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
			if err != nil {
				slog.Error("Failed to init Gemini model", "error", err)
				os.Exit(1)
			}

			var provider search.Provider
			switch cfg.SearchProvider {
			case "arxiv":
				provider = search.NewArxiv()
			default:
				provider = search.NewTavily(cfg.TavilyAPIKey)
			}

			slog.Info("Starting research", "topic", topic, "provider", cfg.SearchProvider)

			engine := research.NewEngine(gemini.NewClient(model), provider)
			state, err := engine.Run(ctx, topic)
			if err != nil {
				slog.Error("Error running research", "error", err)
				os.Exit(1)
			}

			saveReport(state)
			archiveRun(ctx, cfg, state)
		},
	}

	rootCmd.Flags().StringVarP(&topic, "topic", "t", "", "The research topic")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

// saveReport writes the report and its sources into the working directory.
func saveReport(state *research.State) {
	reportFilename := fmt.Sprintf("report_%d.md", time.Now().Unix())
	if err := os.WriteFile(reportFilename, []byte(state.Report), 0644); err != nil {
		slog.Warn("failed to save report locally", "error", err)
	} else {
		slog.Info("Saved report", "filename", reportFilename)
	}

	sourcesData, err := json.MarshalIndent(state.Sources, "", "  ")
	if err == nil {
		if err := os.WriteFile("sources.json", sourcesData, 0644); err != nil {
			slog.Error("Failed to save sources.json", "error", err)
		} else {
			slog.Info("Saved sources", "filename", "sources.json")
		}
	}
}

// archiveRun stores and indexes the finished run when a database is
// configured. Failures only cost the archive entry, never the local files.
func archiveRun(ctx context.Context, cfg *config.Config, state *research.State) {
	if cfg.DatabaseURL == "" {
		return
	}

	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		slog.Error("Failed to initialize schema", "error", err)
		return
	}

	store := archive.NewStore(db)
	run, err := store.CreateRun(ctx, state.Topic)
	if err != nil {
		slog.Error("Failed to create archive run", "error", err)
		return
	}
	if err := store.CompleteRun(ctx, run.ID, state.Report, state.Sources); err != nil {
		slog.Error("Failed to archive run", "error", err)
		return
	}

	embedder, err := embeddings.NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleAPIKey)
	if err != nil {
		slog.Error("Failed to init embedder", "error", err)
		return
	}

	indexer := archive.NewIndexer(db, embedder, cfg.CollectionName)
	indexer.ChunkSize = cfg.ChunkSize
	indexer.ChunkOverlap = cfg.ChunkOverlap
	if err := indexer.IndexRun(ctx, run.ID, state.Topic, state.Sources); err != nil {
		slog.Error("Failed to index run sources", "error", err)
		return
	}

	slog.Info("Archived run", "run_id", run.ID)
}
