package lcd480

import (
	"encoding/binary"
	"fmt"

	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/frame"
)

// Parser lcd480 帧头解析器
type Parser struct{}

var _ frame.HeaderParser = Parser{}

// Match 首字节为帧命令即视为帧头
func (Parser) Match(chunk []byte) bool {
	return len(chunk) > 0 && chunk[offCommand] == CmdFrame
}

// Parse 解析固定 10 字节帧头，返回载荷起始偏移
func (Parser) Parse(chunk []byte) (coremodel.HeaderInfo, int, error) {
	if len(chunk) < HeaderSize {
		return coremodel.HeaderInfo{}, 0, fmt.Errorf("%w: need %d bytes, got %d", frame.ErrInvalidHeader, HeaderSize, len(chunk))
	}
	compression := chunk[offCompression]
	return coremodel.HeaderInfo{
		Command:        chunk[offCommand],
		Compression:    compression,
		Width:          int(binary.LittleEndian.Uint16(chunk[offWidth:])),
		Height:         int(binary.LittleEndian.Uint16(chunk[offHeight:])),
		DeclaredLength: int(binary.LittleEndian.Uint32(chunk[offLength:])),
		IsCompressed:   compression != CompressionNone,
	}, HeaderSize, nil
}
