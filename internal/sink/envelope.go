package sink

import (
	"time"

	"github.com/google/uuid"

	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/frame"
)

// Source 事件来源（一条 TCP 连接或一个 UDP 对端）
type Source struct {
	Transport string `json:"transport"`
	ConnID    string `json:"conn_id"`
	Remote    string `json:"remote"`
	Protocol  string `json:"protocol"`
}

// Envelope 对外发布的帧事件
type Envelope struct {
	ID         string         `json:"id"`
	ConnID     string         `json:"conn_id"`
	Source     string         `json:"source"`
	Transport  string         `json:"transport"`
	Protocol   string         `json:"protocol"`
	ReceivedAt time.Time      `json:"received_at"`
	Format     string         `json:"format,omitempty"`
	Width      int            `json:"width,omitempty"`
	Height     int            `json:"height,omitempty"`
	Size       int            `json:"size"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Error      string         `json:"error,omitempty"`
	ErrorKind  string         `json:"error_kind,omitempty"`
	Data       []byte         `json:"data,omitempty"`
}

// NewEnvelope 包装解码事件
func NewEnvelope(src Source, ev coremodel.DecodedFrame, now time.Time) Envelope {
	env := Envelope{
		ID:         uuid.NewString(),
		ConnID:     src.ConnID,
		Source:     src.Remote,
		Transport:  src.Transport,
		Protocol:   src.Protocol,
		ReceivedAt: now,
		Metadata:   ev.Metadata,
	}
	if ev.Err != nil {
		env.Error = ev.Err.Error()
		env.ErrorKind = frame.ErrorKind(ev.Err)
		return env
	}
	env.Format = ev.Format.String()
	env.Width = ev.Width
	env.Height = ev.Height
	env.Size = len(ev.Data)
	env.Data = ev.Data
	return env
}

// IsError 是否错误事件
func (e Envelope) IsError() bool { return e.Error != "" }

// Summary 去掉载荷的副本（用于历史记录）
func (e Envelope) Summary() Envelope {
	e.Data = nil
	return e
}
