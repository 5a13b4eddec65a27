// Package lcd320 320x240 横屏控制器协议。
package lcd320

import (
	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/adapter"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/frame"
)

const ID = "lcd320"

func Capability() coremodel.Capability {
	return coremodel.Capability{
		Width:              PanelWidth,
		Height:             PanelHeight,
		MaxPacketSize:      MaxPacketSize,
		MaxFrameRate:       MaxFrameRate,
		SupportsBrightness: true,
		MaxFrameSize:       PanelWidth * PanelHeight * 2,
	}
}

func NewDecoder(caps coremodel.Capability, opts adapter.Options) adapter.Decoder {
	return frame.New(ID, Parser{}, caps, opts)
}
