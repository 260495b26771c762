package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/glamhair/patglam-agent/internal/archive"
	"github.com/glamhair/patglam-agent/internal/delivery"
	"github.com/glamhair/patglam-agent/internal/dialog"
	"github.com/glamhair/patglam-agent/internal/store"
	"github.com/glamhair/patglam-agent/pkg/env"
)

// Handler carries the wired call-flow dependencies for all HTTP endpoints.
type Handler struct {
	cfg        *env.Config
	store      store.Store
	locks      *store.KeyedMutex
	planner    *dialog.Planner
	llmPlanner *dialog.LLMPlanner
	summarizer *dialog.Summarizer
	dispatcher delivery.Dispatcher
	archive    *archive.Archive
	hub        *Hub
	logger     *zap.Logger
}

func NewHandler(
	cfg *env.Config,
	sessionStore store.Store,
	planner *dialog.Planner,
	llmPlanner *dialog.LLMPlanner,
	summarizer *dialog.Summarizer,
	dispatcher delivery.Dispatcher,
	briefArchive *archive.Archive,
	hub *Hub,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		cfg:        cfg,
		store:      sessionStore,
		locks:      store.NewKeyedMutex(),
		planner:    planner,
		llmPlanner: llmPlanner,
		summarizer: summarizer,
		dispatcher: dispatcher,
		archive:    briefArchive,
		hub:        hub,
		logger:     logger,
	}
}

// fullRequestURL rebuilds the public URL the telephony provider signed.
// Behind a proxy the forwarded headers win over the local socket view.
func fullRequestURL(c *gin.Context) string {
	scheme := c.GetHeader("X-Forwarded-Proto")
	if scheme == "" {
		if c.Request.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	host := c.GetHeader("X-Forwarded-Host")
	if host == "" {
		host = c.Request.Host
	}
	return scheme + "://" + host + c.Request.URL.RequestURI()
}
