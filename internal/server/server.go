package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/agenthands/inquest/internal/app"
	"github.com/agenthands/inquest/internal/core"
	"github.com/agenthands/inquest/internal/core/model"
	"github.com/agenthands/inquest/internal/graphstore"
	"github.com/agenthands/inquest/internal/logger"
	"github.com/agenthands/inquest/internal/transcript"
)

type Server struct {
	App *app.App
	log logrus.FieldLogger
}

func NewServer(a *app.App) *Server {
	return &Server{App: a, log: a.Log}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(s.log))

	r.GET("/health", s.Health)

	inv := r.Group("/investigation")
	inv.POST("/submit-qa", s.SubmitQA)
	inv.GET("/sessions", s.ListSessions)
	inv.GET("/sessions/:id/transcript", s.Transcript)
	inv.GET("/sessions/:id/messages", s.Messages)
	inv.POST("/sessions/:id/rebuild", s.Rebuild)

	r.GET("/graph/data", s.GraphData)
	r.GET("/graph/entity", s.EntityGraph)
	r.GET("/graph/changes", s.GraphChanges)
	r.POST("/analysis/chat", s.Chat)

	return r
}

type SubmitQARequest struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

func (s *Server) SubmitQA(c *gin.Context) {
	var req SubmitQARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	resp, err := s.App.Investigation.Submit(c.Request.Context(), core.SubmitRequest{
		SessionID: req.SessionID,
		Question:  req.Question,
		Answer:    req.Answer,
	})
	if err != nil {
		if model.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.log.WithError(err).Error("submission failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to process submission"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GraphData serves the latest snapshot of one session, or of every session
// when session_id is omitted.
func (s *Server) GraphData(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID != "" {
		if err := transcript.ValidateSessionID(sessionID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}

	snap, err := s.App.Exporter.Snapshot(c.Request.Context(), sessionID, limit)
	if err != nil {
		s.log.WithError(err).Error("failed to load graph data")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Graph database unavailable"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// EntityGraph serves the neighbourhood of a named entity.
func (s *Server) EntityGraph(c *gin.Context) {
	sessionID := c.Query("session_id")
	if err := transcript.ValidateSessionID(sessionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	depth, ok := queryInt(c, "depth", defaultDepth)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", defaultEntityLimit)
	if !ok {
		return
	}

	snap, err := s.App.Exporter.Neighborhood(c.Request.Context(), sessionID, name, depth, limit)
	if errors.Is(err, graphstore.ErrEntityNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
		return
	}
	if err != nil {
		s.log.WithError(err).Error("failed to load entity graph")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Graph database unavailable"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GraphChanges serves the entities touched after since (RFC 3339). An
// omitted session_id spans every session.
func (s *Server) GraphChanges(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID != "" {
		if err := transcript.ValidateSessionID(sessionID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	since, err := time.Parse(time.RFC3339, c.Query("since"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC 3339 timestamp"})
		return
	}
	limit, ok := queryInt(c, "limit", defaultChangesLimit)
	if !ok {
		return
	}

	snap, err := s.App.Exporter.Changes(c.Request.Context(), sessionID, since, limit)
	if err != nil {
		s.log.WithError(err).Error("failed to load graph changes")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Graph database unavailable"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

const (
	defaultDepth        = 2
	defaultEntityLimit  = 30
	defaultChangesLimit = 20
)

// queryInt reads an optional integer parameter. On a malformed value it
// writes the 400 response and reports false.
func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer"})
		return 0, false
	}
	return n, true
}

func (s *Server) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": s.App.Transcript.Sessions()})
}

func (s *Server) Transcript(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.App.Transcript.Session(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	var b strings.Builder
	if err := s.App.Transcript.Export(id, &b); err != nil {
		s.log.WithError(err).Error("failed to export transcript")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export transcript"})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(b.String()))
}

func (s *Server) Messages(c *gin.Context) {
	msgs, err := s.App.Mirror.Messages(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.log.WithError(err).Error("failed to list messages")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (s *Server) Rebuild(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.App.Transcript.Session(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	res, err := s.App.Investigation.Rebuild(c.Request.Context(), id)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, c.Request.Context().Err()) {
			status = http.StatusRequestTimeout
		}
		s.log.WithError(err).Error("rebuild failed")
		c.JSON(status, gin.H{"error": err.Error(), "episodes": res.Episodes})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "episodes": res.Episodes, "degraded": res.Degraded})
}

type ChatRequest struct {
	Prompt string `json:"prompt"`
}

// Chat forwards a free-form prompt to the configured model without any
// session context.
func (s *Server) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	if s.App.LLM == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No language model configured"})
		return
	}
	answer, err := s.App.LLM.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		s.log.WithError(err).Error("chat generation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to generate answer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, s.App.Health(c.Request.Context()))
}
