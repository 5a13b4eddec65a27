package lcd320

import (
	"encoding/binary"
	"fmt"

	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/frame"
)

// Parser lcd320 帧头解析器（魔数签名）
type Parser struct{}

var _ frame.HeaderParser = Parser{}

// Match 检查魔数 A5 5A
func (Parser) Match(chunk []byte) bool {
	return len(chunk) >= 2 && chunk[0] == magic[0] && chunk[1] == magic[1]
}

// Parse 解析 12 字节帧头
func (Parser) Parse(chunk []byte) (coremodel.HeaderInfo, int, error) {
	if len(chunk) < HeaderSize {
		return coremodel.HeaderInfo{}, 0, fmt.Errorf("%w: need %d bytes, got %d", frame.ErrInvalidHeader, HeaderSize, len(chunk))
	}
	if chunk[offCommand] != CmdFullFrame {
		return coremodel.HeaderInfo{}, 0, fmt.Errorf("%w: unsupported command 0x%02X", frame.ErrInvalidHeader, chunk[offCommand])
	}
	format := chunk[offFormat]
	return coremodel.HeaderInfo{
		Command:        chunk[offCommand],
		Compression:    format,
		Width:          int(binary.BigEndian.Uint16(chunk[offWidth:])),
		Height:         int(binary.BigEndian.Uint16(chunk[offHeight:])),
		DeclaredLength: int(binary.BigEndian.Uint32(chunk[offLength:])),
		IsCompressed:   format != FormatRGB565,
	}, HeaderSize, nil
}

// EncodeHeader 构造帧头
func EncodeHeader(format byte, width, height, length int) []byte {
	b := make([]byte, HeaderSize)
	b[0], b[1] = magic[0], magic[1]
	b[offCommand] = CmdFullFrame
	b[offFormat] = format
	binary.BigEndian.PutUint16(b[offWidth:], uint16(width))
	binary.BigEndian.PutUint16(b[offHeight:], uint16(height))
	binary.BigEndian.PutUint32(b[offLength:], uint32(length))
	return b
}
