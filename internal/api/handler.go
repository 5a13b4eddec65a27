package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
	"github.com/taoyao-code/lcd-gateway/internal/gateway"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/registry"
	"github.com/taoyao-code/lcd-gateway/internal/sink"
)

// FrameStore 帧缓存查询（sink.RedisStore）
type FrameStore interface {
	Latest(ctx context.Context, source string) (*sink.Envelope, error)
	History(ctx context.Context, source string, n int) ([]sink.Envelope, error)
}

// BindingLister 活动连接查询（gateway.Binder）
type BindingLister interface {
	Snapshot() []gateway.BindingInfo
	Len() int
}

// Handler 只读API处理器
type Handler struct {
	reg             *registry.Registry
	defaultProtocol string
	store           FrameStore
	bindings        BindingLister
	stats           map[string]func() any
	logger          *zap.Logger
}

// ProtocolInfo 协议列表项
type ProtocolInfo struct {
	ID         string               `json:"id"`
	Default    bool                 `json:"default"`
	Capability coremodel.Capability `json:"capability"`
}

// Protocols 已注册协议及能力描述
func Protocols(reg *registry.Registry, defaultProtocol string) []ProtocolInfo {
	ids := reg.Protocols()
	out := make([]ProtocolInfo, 0, len(ids))
	for _, id := range ids {
		caps, _ := reg.Capability(id)
		out = append(out, ProtocolInfo{ID: id, Default: id == defaultProtocol, Capability: caps})
	}
	return out
}

// ListProtocols GET /api/protocols
func (h *Handler) ListProtocols(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"protocols": Protocols(h.reg, h.defaultProtocol)})
}

// GetProtocol GET /api/protocols/:id
func (h *Handler) GetProtocol(c *gin.Context) {
	id := c.Param("id")
	caps, ok := h.reg.Capability(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown protocol", "protocol": id})
		return
	}
	c.JSON(http.StatusOK, ProtocolInfo{ID: id, Default: id == h.defaultProtocol, Capability: caps})
}

// ListConnections GET /api/connections
func (h *Handler) ListConnections(c *gin.Context) {
	if h.bindings == nil {
		c.JSON(http.StatusOK, gin.H{"connections": []gateway.BindingInfo{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connections": h.bindings.Snapshot()})
}

// LatestFrame GET /api/devices/:id/frame[?data=true]
// 设备以接入源地址标识；默认不返回载荷
func (h *Handler) LatestFrame(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "frame store disabled"})
		return
	}
	env, err := h.store.Latest(c.Request.Context(), c.Param("id"))
	if errors.Is(err, sink.ErrFrameNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no frame", "device": c.Param("id")})
		return
	}
	if err != nil {
		h.logger.Error("load latest frame failed", zap.String("device", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if withData, _ := strconv.ParseBool(c.Query("data")); !withData {
		s := env.Summary()
		env = &s
	}
	c.JSON(http.StatusOK, env)
}

// FrameHistory GET /api/devices/:id/history[?limit=n]
func (h *Handler) FrameHistory(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "frame store disabled"})
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	list, err := h.store.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.logger.Error("load frame history failed", zap.String("device", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"device": c.Param("id"), "events": list})
}

// Stats GET /api/stats
func (h *Handler) Stats(c *gin.Context) {
	out := gin.H{}
	for name, fn := range h.stats {
		out[name] = fn()
	}
	if h.bindings != nil {
		out["decoders"] = h.bindings.Len()
	}
	c.JSON(http.StatusOK, out)
}
