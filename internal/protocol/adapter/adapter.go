package adapter

import (
	"strings"

	"go.uber.org/zap"

	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
)

// Decoder 统一协议解码接口：每条逻辑连接一个实例，由注册表创建
// 要求：
// - Sniff 用于首包初判（不改变状态）
// - ProcessBytes 处理来自连接的原始字节块（内部负责分包重组），仅在误用时返回错误
// - 同一实例不支持并发调用 ProcessBytes，调用方需串行投递
type Decoder interface {
	Sniff(prefix []byte) bool
	ProcessBytes(p []byte) error
	Reset()
	Dispose()
	State() coremodel.DecoderState
	Subscribe(id string, ch chan<- coremodel.DecodedFrame) error
	Unsubscribe(id string) error
	Stats() coremodel.DecoderStats
}

// OversizePolicy 超量投递（累积字节超过声明长度）的处理策略
type OversizePolicy int

const (
	OversizeTruncate OversizePolicy = iota // 截断到声明长度并告警
	OversizeReject                         // 丢弃整帧并上报错误事件
)

func (p OversizePolicy) String() string {
	if p == OversizeReject {
		return "reject"
	}
	return "truncate"
}

// ParseOversizePolicy 从配置字符串解析，未知值回退为 truncate
func ParseOversizePolicy(s string) OversizePolicy {
	if strings.EqualFold(strings.TrimSpace(s), "reject") {
		return OversizeReject
	}
	return OversizeTruncate
}

// Options 构造解码实例的可选参数
type Options struct {
	Logger   *zap.Logger
	Oversize OversizePolicy
}

// Factory 解码器工厂：caps 为注册时的能力描述，每次调用返回全新实例
type Factory func(caps coremodel.Capability, opts Options) Decoder
