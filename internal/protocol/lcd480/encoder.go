package lcd480

import "encoding/binary"

// EncodeHeader 构造帧头
func EncodeHeader(compression byte, width, height, length int) []byte {
	b := make([]byte, HeaderSize)
	b[offCommand] = CmdFrame
	b[offCompression] = compression
	binary.LittleEndian.PutUint16(b[offWidth:], uint16(width))
	binary.LittleEndian.PutUint16(b[offHeight:], uint16(height))
	binary.LittleEndian.PutUint32(b[offLength:], uint32(length))
	return b
}

// Packetize 将一帧切分为不超过 maxPacket 字节的包：首包携带帧头与部分载荷。
// 续包首字节若恰为 CmdFrame 会被接收端当作帧头，这是该协议线格式的固有限制。
func Packetize(compression byte, width, height int, payload []byte, maxPacket int) [][]byte {
	if maxPacket <= HeaderSize {
		maxPacket = MaxPacketSize
	}
	first := EncodeHeader(compression, width, height, len(payload))
	n := maxPacket - HeaderSize
	if n > len(payload) {
		n = len(payload)
	}
	first = append(first, payload[:n]...)
	packets := [][]byte{first}
	for off := n; off < len(payload); off += maxPacket {
		end := off + maxPacket
		if end > len(payload) {
			end = len(payload)
		}
		packets = append(packets, payload[off:end])
	}
	return packets
}
