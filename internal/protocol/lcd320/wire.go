package lcd320

// 帧头布局（大端）：
// magic[2]=A5 5A | cmd[1] | format[1] | widthBE[2] | heightBE[2] | lengthBE[4] | payload...
const (
	HeaderSize    = 12
	MaxPacketSize = 512

	offCommand = 2
	offFormat  = 3
	offWidth   = 4
	offHeight  = 6
	offLength  = 8
)

var magic = [2]byte{0xA5, 0x5A}

const (
	CmdFullFrame byte = 0x10

	FormatRGB565 byte = 0x00
	FormatJPEG   byte = 0x01
)

const (
	PanelWidth   = 320
	PanelHeight  = 240
	MaxFrameRate = 20
)
