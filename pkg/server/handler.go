package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"autoresearcher/pkg/archive"
	"autoresearcher/pkg/chat"
	"autoresearcher/pkg/config"
	"autoresearcher/pkg/gemini"
	"autoresearcher/pkg/research"
	"autoresearcher/pkg/search"
)

// MCPSession tracks one MCP client session.
type MCPSession struct {
	ID      string
	Created int64
}

var (
	mcpSessions = make(map[string]*MCPSession)
	sessionMu   sync.RWMutex
)

// MCPRequest is an MCP JSON-RPC request.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse is an MCP JSON-RPC response.
type MCPResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *MCPError `json:"error,omitempty"`
}

type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Handler wires the HTTP routes. Store, Chat and Tools are nil when no
// database is configured; their routes then answer 503.
type Handler struct {
	Service *Service
	Store   *archive.Store
	Chat    *chat.Service
	Tools   *chat.ArchiveToolset
	Cfg     *config.Config
}

func NewHandler(s *Service, store *archive.Store, c *chat.Service, tools *chat.ArchiveToolset, cfg *config.Config) *Handler {
	return &Handler{Service: s, Store: store, Chat: c, Tools: tools, Cfg: cfg}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.root)
	r.GET("/health", h.health)
	r.POST("/mcp", h.MCPHandler)

	api := r.Group("/api")
	{
		api.POST("/research", h.runResearch)
		api.GET("/research/stream", h.streamResearch)

		// Archive reads
		api.GET("/research", h.listRuns)
		api.GET("/research/:id", h.getRun)
		api.GET("/research/:id/logs", h.getRunLogs)

		// Chat routes
		api.POST("/chat/conversations", h.createConversation)
		api.GET("/chat/conversations", h.listConversations)
		api.GET("/chat/conversations/:id/messages", h.getMessages)
		api.POST("/chat/conversations/:id/messages", h.sendMessage)
	}
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "AutoResearcher API"})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":                "healthy",
		"gemini_key_configured": h.Cfg.GoogleAPIKey != "",
		"tavily_key_configured": h.Cfg.TavilyAPIKey != "",
	})
}

// validateTopic returns the message of a 400 response, or "" when topic is
// acceptable.
func validateTopic(topic string) string {
	if utf8.RuneCountInString(strings.TrimSpace(topic)) < 3 {
		return "Topic must be at least 3 characters long"
	}
	if utf8.RuneCountInString(topic) > 500 {
		return "Topic must be less than 500 characters"
	}
	return ""
}

type researchRequest struct {
	Topic string `json:"topic"`
}

func (h *Handler) runResearch(c *gin.Context) {
	var req researchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if msg := validateTopic(req.Topic); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	slog.Info("Starting research request", "topic", req.Topic)

	state, err := h.Service.Run(c.Request.Context(), req.Topic, nil)
	if err != nil {
		h.researchError(c, req.Topic, err)
		return
	}

	slog.Info("Research completed", "topic", req.Topic, "sources", len(state.Sources))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report":  linkify(state.Report),
		"sources": state.Sources,
		"topic":   req.Topic,
	})
}

// researchError maps an engine failure onto the documented error payloads.
func (h *Handler) researchError(c *gin.Context, topic string, err error) {
	if gemini.IsRateLimit(err) {
		slog.Warn("Rate limit hit", "topic", topic)
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "Rate limit exceeded",
			"message":     "The AI service is rate limited. Please wait 1-2 minutes and try again.",
			"retry_after": 60,
			"tip":         "Try a simpler topic or wait between requests",
		})
		return
	}

	if errors.Is(err, search.ErrMissingAPIKey) {
		slog.Error("Search API key missing")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Configuration error",
			"message": "Search API key not configured. Please contact administrator.",
		})
		return
	}

	slog.Error("Research failed", "topic", topic, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Research failed",
		"message": err.Error(),
	})
}

func (h *Handler) streamResearch(c *gin.Context) {
	topic := c.Query("topic")
	if utf8.RuneCountInString(strings.TrimSpace(topic)) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Topic must be at least 3 characters long"})
		return
	}

	slog.Info("Starting streaming research", "topic", topic)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Transfer-Encoding", "chunked")

	writeEvent(c, gin.H{"type": "status", "message": "Starting research...", "progress": 0})

	ctx := c.Request.Context()
	updates := make(chan research.State, 16)

	type outcome struct {
		state *research.State
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		state, err := h.Service.Run(ctx, topic, func(s research.State) {
			select {
			case updates <- s:
			case <-ctx.Done():
			}
		})
		close(updates)
		done <- outcome{state: state, err: err}
	}()

	for update := range updates {
		writeEvent(c, gin.H{
			"type":         "progress",
			"message":      update.Status,
			"progress":     update.Progress,
			"current_step": update.CurrentStep,
			"total_steps":  len(update.Plan),
		})
	}

	out := <-done
	if out.err != nil {
		if gemini.IsRateLimit(out.err) {
			writeEvent(c, gin.H{"type": "error", "message": "Rate limit exceeded. Please wait and try again."})
		} else {
			writeEvent(c, gin.H{"type": "error", "message": out.err.Error()})
		}
		return
	}

	writeEvent(c, gin.H{
		"type":     "final",
		"report":   linkify(out.state.Report),
		"sources":  out.state.Sources,
		"progress": 1.0,
	})
	slog.Info("Streaming research completed", "topic", topic)
}

// writeEvent writes one SSE data frame and flushes it.
func writeEvent(c *gin.Context, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_, _ = c.Writer.Write([]byte("data: "))
	_, _ = c.Writer.Write(data)
	_, _ = c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}

func (h *Handler) requireArchive(c *gin.Context) bool {
	if h.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive not configured"})
		return false
	}
	return true
}

func (h *Handler) listRuns(c *gin.Context) {
	if !h.requireArchive(c) {
		return
	}

	runs, err := h.Store.ListRuns(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []archive.Run{}
	}
	c.JSON(http.StatusOK, runs)
}

func (h *Handler) getRun(c *gin.Context) {
	if !h.requireArchive(c) {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}

	run, err := h.Store.GetRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *Handler) getRunLogs(c *gin.Context) {
	if !h.requireArchive(c) {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}

	logs, err := h.Store.RunLogs(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []archive.LogEntry{}
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) requireChat(c *gin.Context) bool {
	if h.Chat == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat not configured"})
		return false
	}
	return true
}

func (h *Handler) createConversation(c *gin.Context) {
	if !h.requireChat(c) {
		return
	}

	conv, err := h.Chat.CreateConversation(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (h *Handler) listConversations(c *gin.Context) {
	if !h.requireChat(c) {
		return
	}

	convs, err := h.Chat.ListConversations(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if convs == nil {
		convs = []chat.Conversation{}
	}
	c.JSON(http.StatusOK, convs)
}

func (h *Handler) getMessages(c *gin.Context) {
	if !h.requireChat(c) {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}

	msgs, err := h.Chat.GetHistory(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) sendMessage(c *gin.Context) {
	if !h.requireChat(c) {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	next, err := h.Chat.SendMessage(c.Request.Context(), id, req.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Transfer-Encoding", "chunked")

	for event, err := range next {
		if err != nil {
			writeEvent(c, chat.StreamEvent{Type: "error", Payload: err.Error()})
			return
		}
		writeEvent(c, event)
	}
}

// MCPHandler serves the MCP JSON-RPC surface over the archive tools.
func (h *Handler) MCPHandler(c *gin.Context) {
	sessionID := c.GetHeader("Mcp-Session-Id")

	var req MCPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, MCPResponse{
			JSONRPC: "2.0",
			ID:      nil,
			Error: &MCPError{
				Code:    -32700,
				Message: "Parse error",
			},
		})
		return
	}

	if req.Method == "initialize" {
		if sessionID == "" {
			sessionID = uuid.New().String()
			c.Header("Mcp-Session-Id", sessionID)

			sessionMu.Lock()
			mcpSessions[sessionID] = &MCPSession{
				ID:      sessionID,
				Created: time.Now().Unix(),
			}
			sessionMu.Unlock()
		}

		c.JSON(http.StatusOK, MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: map[string]any{
				"protocolVersion": "2024-11-05",
				"serverInfo": map[string]any{
					"name":    "autoresearcher-mcp",
					"version": "1.0.0",
				},
				"capabilities": map[string]any{
					"tools": map[string]any{},
				},
			},
		})
		return
	}

	if sessionID == "" {
		c.JSON(http.StatusBadRequest, MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32000,
				Message: "Bad Request: No valid session ID provided",
			},
		})
		return
	}

	sessionMu.RLock()
	_, exists := mcpSessions[sessionID]
	sessionMu.RUnlock()

	if !exists {
		c.JSON(http.StatusBadRequest, MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32000,
				Message: "Invalid session ID",
			},
		})
		return
	}

	switch req.Method {
	case "tools/list":
		h.handleToolsList(c, req)
	case "tools/call":
		h.handleToolsCall(c, req)
	case "ping":
		c.JSON(http.StatusOK, MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]any{},
		})
	default:
		c.JSON(http.StatusOK, MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: "Method not found",
			},
		})
	}
}

func (h *Handler) handleToolsList(c *gin.Context, req MCPRequest) {
	c.JSON(http.StatusOK, MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"tools": []map[string]any{
				{
					"name":        "search_sources",
					"description": "Search archived research sources using semantic search.",
					"inputSchema": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"query": map[string]any{
								"type":        "string",
								"description": "The search query.",
							},
							"topK": map[string]any{
								"type":        "number",
								"description": "The number of top results to return.",
								"default":     5,
							},
							"source": map[string]any{
								"type":        "string",
								"description": "The source URL to filter results by.",
							},
						},
						"required": []string{"query"},
					},
				},
				{
					"name":        "get_source_content",
					"description": "Fetch all archived content for a specific source URL.",
					"inputSchema": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"source": map[string]any{
								"type":        "string",
								"description": "The source URL to fetch content for.",
							},
						},
						"required": []string{"source"},
					},
				},
				{
					"name":        "filter_sources",
					"description": "Find archived sources using logical filters on metadata.",
					"inputSchema": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"filter": map[string]any{
								"type":        "object",
								"description": "JSON filter object with logical operators ($and, $or, $not)",
							},
						},
						"required": []string{"filter"},
					},
				},
				{
					"name":        "list_reports",
					"description": "List recent archived research runs and their reports.",
					"inputSchema": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"limit": map[string]any{
								"type":        "number",
								"description": "Maximum number of runs to list.",
								"default":     10,
							},
						},
					},
				},
			},
		},
	})
}

func (h *Handler) handleToolsCall(c *gin.Context, req MCPRequest) {
	if h.Tools == nil {
		h.sendError(c, req.ID, -32603, "archive not configured")
		return
	}

	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	if err := json.Unmarshal(req.Params, &params); err != nil {
		h.sendError(c, req.ID, -32602, "Invalid params")
		return
	}

	switch params.Name {
	case "search_sources":
		var args chat.SearchSourcesArgs
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			h.sendError(c, req.ID, -32602, "Invalid arguments")
			return
		}
		resp, err := h.Tools.SearchSources(c.Request.Context(), args)
		if err != nil {
			h.sendError(c, req.ID, -32603, err.Error())
			return
		}
		h.sendResult(c, req.ID, resp)

	case "get_source_content":
		var args chat.SourceContentArgs
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			h.sendError(c, req.ID, -32602, "Invalid arguments")
			return
		}
		resp, err := h.Tools.SourceContent(c.Request.Context(), args)
		if err != nil {
			h.sendError(c, req.ID, -32603, err.Error())
			return
		}
		h.sendResult(c, req.ID, resp)

	case "filter_sources":
		var args chat.FilterSourcesArgs
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			h.sendError(c, req.ID, -32602, "Invalid arguments")
			return
		}
		resp, err := h.Tools.FilterSources(c.Request.Context(), args)
		if err != nil {
			h.sendError(c, req.ID, -32603, err.Error())
			return
		}
		h.sendResult(c, req.ID, resp)

	case "list_reports":
		var args chat.ListReportsArgs
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			h.sendError(c, req.ID, -32602, "Invalid arguments")
			return
		}
		resp, err := h.Tools.ListReports(c.Request.Context(), args)
		if err != nil {
			h.sendError(c, req.ID, -32603, err.Error())
			return
		}
		h.sendResult(c, req.ID, resp)

	default:
		h.sendError(c, req.ID, -32601, fmt.Sprintf("Tool not found: %s", params.Name))
	}
}

func (h *Handler) sendError(c *gin.Context, id any, code int, msg string) {
	c.JSON(http.StatusOK, MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: msg,
		},
	})
}

func (h *Handler) sendResult(c *gin.Context, id any, result any) {
	var textContent string
	switch v := result.(type) {
	case chat.SearchSourcesResp:
		textContent = v.Results
	case chat.SourceContentResp:
		textContent = v.Content
	case chat.FilterSourcesResp:
		textContent = v.Content
	case chat.ListReportsResp:
		textContent = v.Reports
	default:
		textContent = fmt.Sprintf("%v", result)
	}

	c.JSON(http.StatusOK, MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result: map[string]any{
			"content": []map[string]any{
				{
					"type": "text",
					"text": textContent,
				},
			},
		},
	})
}
