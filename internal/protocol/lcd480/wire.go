package lcd480

// 帧头布局（小端）：
// cmd[1] | compression[1] | widthLE[2] | heightLE[2] | lengthLE[4] | payload...
// 载荷可以跟在同一包帧头之后，也可以由后续不带帧头的续包承载。
const (
	HeaderSize    = 10
	MaxPacketSize = 1400

	offCommand     = 0
	offCompression = 1
	offWidth       = 2
	offHeight      = 4
	offLength      = 6
)

// 命令字：帧头签名
const (
	CmdFrame byte = 0x01
)

// 压缩标志
const (
	CompressionNone byte = 0x00 // RGB565 原始像素
	CompressionJPEG byte = 0x01
	CompressionPNG  byte = 0x02
)

// 面板参数
const (
	PanelWidth    = 480
	PanelHeight   = 480
	BytesPerPixel = 2
	MaxFrameRate  = 30
)
