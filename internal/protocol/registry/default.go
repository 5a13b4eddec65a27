package registry

import (
	"github.com/taoyao-code/lcd-gateway/internal/protocol/adapter"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/lcd320"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/lcd480"
)

// DefaultProtocol 调用方未指定协议时使用
const DefaultProtocol = lcd480.ID

// Default 返回注册了全部内置协议并已封存的注册表。
// 新增厂商协议：实现 frame.HeaderParser 与工厂后在此追加一行。
func Default(opts adapter.Options) *Registry {
	r := New(opts)
	r.MustRegister(lcd480.ID, lcd480.NewDecoder, lcd480.Capability())
	r.MustRegister(lcd320.ID, lcd320.NewDecoder, lcd320.Capability())
	r.Seal()
	return r
}
