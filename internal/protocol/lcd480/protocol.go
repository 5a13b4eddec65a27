// Package lcd480 480x480 方屏控制器协议（参考实现）。
package lcd480

import (
	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/adapter"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/frame"
)

// ID 注册表中的协议标识
const ID = "lcd480"

// Capability 面板能力描述
func Capability() coremodel.Capability {
	return coremodel.Capability{
		Width:               PanelWidth,
		Height:              PanelHeight,
		MaxPacketSize:       MaxPacketSize,
		MaxFrameRate:        MaxFrameRate,
		SupportsBrightness:  true,
		SupportsOrientation: true,
		MaxFrameSize:        PanelWidth * PanelHeight * BytesPerPixel,
	}
}

// NewDecoder 解码器工厂
func NewDecoder(caps coremodel.Capability, opts adapter.Options) adapter.Decoder {
	return frame.New(ID, Parser{}, caps, opts)
}
