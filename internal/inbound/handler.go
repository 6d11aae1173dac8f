package inbound

import (
	"crypto/subtle"
	"database/sql"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler terminates the provider's inbound webhook. The URL path segment is
// a capability secret: a request without the right segment is answered as if
// the route did not exist.
type Handler struct {
	secret        string
	inboundDomain string
	processor     *Processor
	logger        *log.Logger
}

// NewHandler builds the webhook handler.
func NewHandler(secret, inboundDomain string, processor *Processor, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		secret:        secret,
		inboundDomain: inboundDomain,
		processor:     processor,
		logger:        logger,
	}
}

// HandleInbound processes one inbound webhook call.
func (h *Handler) HandleInbound(c *gin.Context) {
	if subtle.ConstantTimeCompare([]byte(c.Param("secret")), []byte(h.secret)) != 1 {
		c.String(http.StatusNotFound, "404 Not Found")
		return
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Printf("inbound: read body failed: %v", err)
		c.String(http.StatusBadRequest, "400 Bad Request")
		return
	}

	msg, err := ParseInbound(raw, h.inboundDomain)
	if err != nil {
		h.logger.Printf("inbound: payload rejected: %v", err)
		c.String(http.StatusBadRequest, "400 Bad Request")
		return
	}

	result, err := h.processor.Process(c.Request.Context(), msg)
	if err != nil {
		h.logger.Printf("inbound: processing failed: %v", err)
		c.String(http.StatusBadRequest, "400 Bad Request")
		return
	}

	h.logger.Printf("inbound: %s ticket=%d message=%d attachments=%d",
		result.Action, result.TicketID, result.MessageID, len(result.AttachmentPaths))
	c.Status(http.StatusNoContent)
}

// RouterConfig carries the collaborators the HTTP surface needs.
type RouterConfig struct {
	Handler  *Handler
	DB       *sql.DB
	Registry *prometheus.Registry
}

// NewRouter builds the gin engine: the webhook route, a health endpoint and
// the metrics endpoint.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "405 Method Not Allowed")
	})
	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "404 Not Found")
	})

	r.POST("/inbound/:secret", cfg.Handler.HandleInbound)

	r.GET("/healthz", func(c *gin.Context) {
		if cfg.DB != nil {
			if err := cfg.DB.PingContext(c.Request.Context()); err != nil {
				c.String(http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		c.String(http.StatusOK, "ok")
	})

	if cfg.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	return r
}
