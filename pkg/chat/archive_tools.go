package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"autoresearcher/pkg/archive"
	"autoresearcher/pkg/config"
	"autoresearcher/pkg/database"
	"autoresearcher/pkg/vectorstore"
)

// Embedder is the query embedding capability the tools need.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// ArchiveToolset exposes the research archive to the chat agent: semantic
// search over indexed source chunks plus lookups of archived reports.
type ArchiveToolset struct {
	DB       *database.PostgresDB
	Store    *archive.Store
	Embedder Embedder
	config   *config.Config
}

func NewArchiveToolset(db *database.PostgresDB, store *archive.Store, embedder Embedder, cfg *config.Config) *ArchiveToolset {
	return &ArchiveToolset{
		DB:       db,
		Store:    store,
		Embedder: embedder,
		config:   cfg,
	}
}

func (t *ArchiveToolset) Name() string {
	return "archive_tools"
}

func (t *ArchiveToolset) Tools(ctx agent.ReadonlyContext) ([]tool.Tool, error) {
	searchTool, err := functiontool.New[SearchSourcesArgs, SearchSourcesResp](
		functiontool.Config{
			Name:        "search_sources",
			Description: "Search archived research sources using semantic search.",
		},
		t.searchSourcesTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search tool: %w", err)
	}

	sourceTool, err := functiontool.New[SourceContentArgs, SourceContentResp](
		functiontool.Config{
			Name:        "get_source_content",
			Description: "Fetch all archived content for a specific source URL.",
		},
		t.sourceContentTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create source tool: %w", err)
	}

	filterTool, err := functiontool.New[FilterSourcesArgs, FilterSourcesResp](
		functiontool.Config{
			Name:        "filter_sources",
			Description: "Find archived sources using logical filters on metadata ($and, $or, $not).",
		},
		t.filterSourcesTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter tool: %w", err)
	}

	reportsTool, err := functiontool.New[ListReportsArgs, ListReportsResp](
		functiontool.Config{
			Name:        "list_reports",
			Description: "List recent archived research runs and their reports.",
		},
		t.listReportsTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reports tool: %w", err)
	}

	return []tool.Tool{searchTool, sourceTool, filterTool, reportsTool}, nil
}

type SearchSourcesArgs struct {
	Query  string `json:"query" description:"The search query"`
	TopK   int    `json:"topK,omitempty" description:"Number of results to return (default 5)"`
	Source string `json:"source,omitempty" description:"Optional source URL filter"`
}

type SearchSourcesResp struct {
	Results string `json:"results"`
}

func (t *ArchiveToolset) searchSourcesTool(ctx tool.Context, args SearchSourcesArgs) (SearchSourcesResp, error) {
	return t.SearchSources(ctx, args)
}

// SearchSources embeds the query and runs a similarity search over the
// archived chunks.
func (t *ArchiveToolset) SearchSources(ctx context.Context, args SearchSourcesArgs) (SearchSourcesResp, error) {
	if args.TopK == 0 {
		args.TopK = 5
	}
	collection := t.config.CollectionName

	slog.Info("Searching archived sources", "query", args.Query, "topK", args.TopK, "source", args.Source)

	queryEmbedding, err := t.Embedder.EmbedText(ctx, args.Query)
	if err != nil {
		return SearchSourcesResp{}, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	store, err := vectorstore.NewPGVectorStore(t.DB.Pool, collection)
	if err != nil {
		return SearchSourcesResp{}, fmt.Errorf("invalid collection name: %w", err)
	}

	results, err := store.SimilaritySearch(ctx, queryEmbedding, args.TopK, args.Source)
	if err != nil {
		return SearchSourcesResp{}, fmt.Errorf("failed to search: %w", err)
	}

	var formatted []string
	for _, result := range results {
		source := "unknown"
		if s, ok := result.Document.Metadata["source"].(string); ok {
			source = s
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("[Source]: %s\n[Content]: %s", source, result.Document.Content))

		for k, v := range result.Document.Metadata {
			if k == "source" {
				continue
			}
			sb.WriteString(fmt.Sprintf("\n[%s]: %v", k, v))
		}

		formatted = append(formatted, sb.String())
	}

	return SearchSourcesResp{Results: strings.Join(formatted, "\n\n")}, nil
}

type SourceContentArgs struct {
	Source string `json:"source" description:"The source URL to fetch content for"`
}

type SourceContentResp struct {
	Content string `json:"content"`
}

func (t *ArchiveToolset) sourceContentTool(ctx tool.Context, args SourceContentArgs) (SourceContentResp, error) {
	return t.SourceContent(ctx, args)
}

// SourceContent returns every archived chunk of one source URL.
func (t *ArchiveToolset) SourceContent(ctx context.Context, args SourceContentArgs) (SourceContentResp, error) {
	store, err := vectorstore.NewPGVectorStore(t.DB.Pool, t.config.CollectionName)
	if err != nil {
		return SourceContentResp{}, fmt.Errorf("invalid collection name: %w", err)
	}

	results, err := store.GetContentBySource(ctx, args.Source)
	if err != nil {
		return SourceContentResp{}, fmt.Errorf("failed to find content: %w", err)
	}

	var chunks []string
	for _, result := range results {
		chunks = append(chunks, result.Content)
	}

	return SourceContentResp{Content: strings.Join(chunks, "\n\n")}, nil
}

type FilterSourcesArgs struct {
	Filter map[string]any `json:"filter" description:"JSON filter object with logical operators ($and, $or, $not)"`
}

type FilterSourcesResp struct {
	Content string `json:"content"`
}

func (t *ArchiveToolset) filterSourcesTool(ctx tool.Context, args FilterSourcesArgs) (FilterSourcesResp, error) {
	return t.FilterSources(ctx, args)
}

// FilterSources returns archived chunks matching a metadata filter, for
// example all sources of one run or topic.
func (t *ArchiveToolset) FilterSources(ctx context.Context, args FilterSourcesArgs) (FilterSourcesResp, error) {
	store, err := vectorstore.NewPGVectorStore(t.DB.Pool, t.config.CollectionName)
	if err != nil {
		return FilterSourcesResp{}, fmt.Errorf("invalid collection name: %w", err)
	}

	results, err := store.GetContentByMetadata(ctx, args.Filter)
	if err != nil {
		return FilterSourcesResp{}, fmt.Errorf("failed to find content: %w", err)
	}

	var formatted []string
	for _, result := range results {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("[Content]: %s", result.Content))
		for k, v := range result.Metadata {
			sb.WriteString(fmt.Sprintf("\n[%s]: %v", k, v))
		}
		formatted = append(formatted, sb.String())
	}

	return FilterSourcesResp{Content: strings.Join(formatted, "\n\n")}, nil
}

type ListReportsArgs struct {
	Limit int `json:"limit,omitempty" description:"Maximum number of runs to list (default 10)"`
}

type ListReportsResp struct {
	Reports string `json:"reports"`
}

func (t *ArchiveToolset) listReportsTool(ctx tool.Context, args ListReportsArgs) (ListReportsResp, error) {
	return t.ListReports(ctx, args)
}

// ListReports summarizes recent archived runs so the agent can point the
// user at full reports.
func (t *ArchiveToolset) ListReports(ctx context.Context, args ListReportsArgs) (ListReportsResp, error) {
	if args.Limit <= 0 {
		args.Limit = 10
	}

	runs, err := t.Store.ListRuns(ctx)
	if err != nil {
		return ListReportsResp{}, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) > args.Limit {
		runs = runs[:args.Limit]
	}

	var lines []string
	for _, run := range runs {
		line := fmt.Sprintf("[%s] %s (%s, %s)",
			run.ID, run.Topic, run.Status, run.CreatedAt.Format("2006-01-02"))
		if run.Report != nil {
			excerpt := *run.Report
			if r := []rune(excerpt); len(r) > 200 {
				excerpt = string(r[:200]) + "..."
			}
			line += "\n" + excerpt
		}
		lines = append(lines, line)
	}

	return ListReportsResp{Reports: strings.Join(lines, "\n\n")}, nil
}
