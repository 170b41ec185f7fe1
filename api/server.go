// Package api обслуживает административный HTTP API модератора.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"twitch-chat-guard/model"
	"twitch-chat-guard/service"
)

// Monitor — операции сервиса, доступные через API (реализуется service.Service).
type Monitor interface {
	Channels() []service.ChannelState
	Log(channel string) ([]model.ModerationAction, error)
	SetBlacklist(channel string, words []string) error
	SetLinkPolicy(channel string, blockAllLinks bool, allowedDomains []string) error
	Act(ctx context.Context, channel string, req service.ActionRequest) (model.ModerationAction, error)
	Classify(channel, text string) (model.Classification, error)
}

// Handler обслуживает маршруты API.
type Handler struct {
	monitor Monitor
	logger  *zap.Logger
}

// NewRouter собирает gin.Engine со всеми маршрутами.
func NewRouter(monitor Monitor, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{monitor: monitor, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	g := r.Group("/api")
	g.GET("/channels", h.Channels)
	g.GET("/channels/:channel/log", h.Log)
	g.PUT("/channels/:channel/blacklist", h.SetBlacklist)
	g.PUT("/channels/:channel/link-policy", h.SetLinkPolicy)
	g.POST("/channels/:channel/actions", h.Act)
	g.POST("/classify", h.Classify)

	return r
}

// Health отвечает 200, пока процесс жив.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Channels — состояние и счётчики каналов.
func (h *Handler) Channels(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Channels())
}

type actionView struct {
	model.ModerationAction
	DurationSeconds int64 `json:"durationSeconds,omitempty"`
}

func viewOf(a model.ModerationAction) actionView {
	return actionView{ModerationAction: a, DurationSeconds: int64(a.Duration / time.Second)}
}

// Log — журнал действий канала, новые первыми.
func (h *Handler) Log(c *gin.Context) {
	actions, err := h.monitor.Log(c.Param("channel"))
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]actionView, 0, len(actions))
	for _, a := range actions {
		out = append(out, viewOf(a))
	}
	c.JSON(http.StatusOK, out)
}

type blacklistRequest struct {
	Words []string `json:"words"`
}

// SetBlacklist заменяет чёрный список канала.
func (h *Handler) SetBlacklist(c *gin.Context) {
	var req blacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.monitor.SetBlacklist(c.Param("channel"), req.Words); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type linkPolicyRequest struct {
	BlockAllLinks  bool     `json:"blockAllLinks"`
	AllowedDomains []string `json:"allowedDomains"`
}

// SetLinkPolicy заменяет политику ссылок канала.
func (h *Handler) SetLinkPolicy(c *gin.Context) {
	var req linkPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.monitor.SetLinkPolicy(c.Param("channel"), req.BlockAllLinks, req.AllowedDomains); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type actRequest struct {
	service.ActionRequest
	DurationSeconds int64 `json:"durationSeconds"`
}

// Act выполняет ручное действие модератора.
func (h *Handler) Act(c *gin.Context) {
	var req actRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Duration = time.Duration(req.DurationSeconds) * time.Second

	action, err := h.monitor.Act(c.Request.Context(), c.Param("channel"), req.ActionRequest)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.logger.Info("api: ручное действие",
		zap.String("channel", action.Channel),
		zap.String("type", string(action.Type)),
		zap.String("user", action.Username))

	c.JSON(http.StatusAccepted, viewOf(action))
}

type classifyRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text" binding:"required"`
}

// Classify оценивает произвольный текст.
func (h *Handler) Classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.monitor.Classify(req.Channel, req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownChannel):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotConnected):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("api: ошибка", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
