package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// MsgPublisher *nats.Conn 的最小子集
type MsgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSPublisher 以 <prefix>.<protocol>.frame|error 主题发布 JSON 事件
type NATSPublisher struct {
	conn   MsgPublisher
	prefix string
}

func NewNATSPublisher(conn MsgPublisher, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = "lcd.frames"
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

func (p *NATSPublisher) Name() string { return "nats" }

// Subject 事件主题
func (p *NATSPublisher) Subject(env Envelope) string {
	kind := "frame"
	if env.IsError() {
		kind = "error"
	}
	return p.prefix + "." + env.Protocol + "." + kind
}

func (p *NATSPublisher) HandleFrame(ctx context.Context, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	msg := nats.NewMsg(p.Subject(env))
	msg.Data = data
	msg.Header.Set("Lcd-Frame-Id", env.ID)
	msg.Header.Set("Lcd-Source", env.Source)
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", msg.Subject, err)
	}
	return nil
}
