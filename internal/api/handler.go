package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/go-risk-alerts/internal/alerting"
	"github.com/mr1hm/go-risk-alerts/internal/ingestion"
	"github.com/mr1hm/go-risk-alerts/internal/models"
	"github.com/mr1hm/go-risk-alerts/internal/registry"
	"github.com/mr1hm/go-risk-alerts/internal/stream"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Monitor is the part of the monitoring supervisor the API talks to.
type Monitor interface {
	Inject(rec models.EventRecord) error
	Units() []ingestion.UnitStatus
}

type Handler struct {
	service     *alerting.Service
	registry    *registry.Registry
	monitor     Monitor
	broadcaster *stream.Broadcaster
}

func NewHandler(service *alerting.Service, reg *registry.Registry, monitor Monitor, broadcaster *stream.Broadcaster) *Handler {
	return &Handler{
		service:     service,
		registry:    reg,
		monitor:     monitor,
		broadcaster: broadcaster,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/alerts", h.listAlerts)
	api.GET("/alerts/stream", h.streamAlerts)
	api.GET("/alerts/:id", h.getAlert)
	api.POST("/alerts", h.createAlert)
	api.POST("/alerts/:id/resolve", h.resolveAlert)
	api.POST("/alerts/:id/cancel", h.cancelAlert)
	api.POST("/alerts/:id/actions/:actionId/done", h.completeAction)
	api.POST("/events", h.injectEvent)
	api.GET("/status", h.status)
	api.GET("/snapshot", h.snapshot)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) listAlerts(c *gin.Context) {
	filter := registry.Filter{
		Limit: defaultLimit,
	}

	if s := c.Query("status"); s != "" {
		status, ok := parseStatus(s)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + s})
			return
		}
		filter.Status = status
	}
	if cat := c.Query("category"); cat != "" {
		category, err := models.ParseCategory(cat)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Category = category
	}
	if ms := c.Query("min_severity"); ms != "" {
		sev, err := models.ParseSeverity(ms)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.MinSeverity = sev
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= maxLimit {
			filter.Limit = lim
		}
	}

	c.JSON(http.StatusOK, toAlertList(h.service.List(filter)))
}

func (h *Handler) getAlert(c *gin.Context) {
	alert, err := h.service.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAlertView(alert))
}

type actionRequest struct {
	ID               string    `json:"id" binding:"required"`
	Description      string    `json:"description" binding:"required"`
	ResponsibleParty string    `json:"responsible_party" binding:"required"`
	Deadline         time.Time `json:"deadline" binding:"required"`
	Priority         string    `json:"priority"`
}

type createAlertRequest struct {
	Category    string          `json:"category" binding:"required"`
	Trigger     string          `json:"trigger" binding:"required"`
	Description string          `json:"description"`
	Impact      string          `json:"impact_assessment"`
	Severity    string          `json:"severity"`
	Actions     []actionRequest `json:"recommended_actions" binding:"dive"`
}

func (h *Handler) createAlert(c *gin.Context) {
	var body createAlertRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := models.ParseCategory(body.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := alerting.Request{
		Category:    category,
		Trigger:     body.Trigger,
		Description: body.Description,
		Impact:      body.Impact,
	}
	if body.Severity != "" {
		if req.Severity, err = models.ParseSeverity(body.Severity); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	for _, a := range body.Actions {
		req.Actions = append(req.Actions, models.RecommendedAction{
			ID:               a.ID,
			Description:      a.Description,
			ResponsibleParty: a.ResponsibleParty,
			Deadline:         a.Deadline.UTC(),
			Priority:         a.Priority,
			Status:           models.ActionPending,
		})
	}

	alert, err := h.service.CreateAlert(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAlertView(alert))
}

type closeRequest struct {
	Note string `json:"note"`
}

func (h *Handler) resolveAlert(c *gin.Context) {
	var body closeRequest
	_ = c.ShouldBindJSON(&body) // body is optional

	alert, err := h.service.Resolve(c.Request.Context(), c.Param("id"), body.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAlertView(alert))
}

func (h *Handler) cancelAlert(c *gin.Context) {
	var body closeRequest
	_ = c.ShouldBindJSON(&body)

	alert, err := h.service.Cancel(c.Request.Context(), c.Param("id"), body.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAlertView(alert))
}

func (h *Handler) completeAction(c *gin.Context) {
	alert, err := h.service.CompleteAction(c.Request.Context(), c.Param("id"), c.Param("actionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAlertView(alert))
}

type eventRequest struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" binding:"required_without_all=Content Description"`
	Content     string    `json:"content"`
	Description string    `json:"description"`
	Impact      string    `json:"impact"`
	URL         string    `json:"url" binding:"omitempty,url"`
	Timestamp   time.Time `json:"timestamp"`
}

func (h *Handler) injectEvent(c *gin.Context) {
	var body eventRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ingestion.ErrNoManualSource.Error()})
		return
	}

	id := body.ID
	if id == "" {
		id = "manual_" + uuid.NewString()
	}
	err := h.monitor.Inject(models.EventRecord{
		ID:          id,
		Title:       body.Title,
		Content:     body.Content,
		Description: body.Description,
		Impact:      body.Impact,
		URL:         body.URL,
		Timestamp:   body.Timestamp,
	})
	if err != nil {
		slog.Warn("event rejected", "event_id", id, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "status": "queued"})
}

func (h *Handler) status(c *gin.Context) {
	resp := gin.H{
		"summary": h.service.Summary(),
	}
	if h.monitor != nil {
		resp["units"] = h.monitor.Units()
	}
	if h.broadcaster != nil {
		resp["stream"] = gin.H{
			"subscribers": h.broadcaster.SubscriberCount(),
			"dropped":     h.broadcaster.Dropped(),
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) snapshot(c *gin.Context) {
	data, err := h.registry.Snapshot()
	if err != nil {
		slog.Error("snapshot export failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export snapshot"})
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

type streamEvent struct {
	Kind  stream.EventKind `json:"kind"`
	At    time.Time        `json:"at"`
	Alert AlertView        `json:"alert"`
}

// streamAlerts pushes alert changes as server-sent events until the client
// disconnects or the broadcaster closes.
func (h *Handler) streamAlerts(c *gin.Context) {
	if h.broadcaster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stream unavailable"})
		return
	}

	id, events := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	slog.Info("stream client connected", "subscriber", id)
	defer slog.Info("stream client disconnected", "subscriber", id)

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Kind), streamEvent{Kind: ev.Kind, At: ev.At, Alert: toAlertView(ev.Alert)})
			return true
		}
	})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, alerting.ErrActionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, alerting.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, alerting.ErrNotActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseStatus(s string) (models.AlertStatus, bool) {
	for _, st := range []models.AlertStatus{models.AlertStatusActive, models.AlertStatusResolved, models.AlertStatusCancelled} {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}
