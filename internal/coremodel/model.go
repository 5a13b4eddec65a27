package coremodel

import "fmt"

// ProtocolID 协议标识（厂商/型号 slug，如 "lcd480"）
type ProtocolID string

// FrameFormat 帧载荷格式（仅分类，不做解码）
type FrameFormat int

const (
	FormatRaw        FrameFormat = iota // 原始像素
	FormatCompressed                    // 压缩图像（JPEG/PNG 等，交由下游解码）
)

func (f FrameFormat) String() string {
	switch f {
	case FormatRaw:
		return "raw"
	case FormatCompressed:
		return "compressed"
	default:
		return "unknown"
	}
}

// Capability 协议能力描述：注册时构造一次，所有解码实例共享只读
type Capability struct {
	Width               int  `json:"width" yaml:"width"`
	Height              int  `json:"height" yaml:"height"`
	MaxPacketSize       int  `json:"max_packet_size" yaml:"max_packet_size"`
	MaxFrameRate        int  `json:"max_frame_rate" yaml:"max_frame_rate"`
	SupportsBrightness  bool `json:"supports_brightness" yaml:"supports_brightness"`
	SupportsOrientation bool `json:"supports_orientation" yaml:"supports_orientation"`
	// MaxFrameSize 单帧载荷上限（字节），决定解码缓冲区容量
	MaxFrameSize int `json:"max_frame_size" yaml:"max_frame_size"`
}

// Validate 检查能力描述是否可用于注册
func (c Capability) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("capability: invalid dimensions %dx%d", c.Width, c.Height)
	}
	if c.MaxPacketSize <= 0 {
		return fmt.Errorf("capability: invalid max packet size %d", c.MaxPacketSize)
	}
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("capability: invalid max frame size %d", c.MaxFrameSize)
	}
	return nil
}

// HeaderInfo 帧头元数据：每个有效头包解析出一份，整体替换不修改
type HeaderInfo struct {
	Command        byte
	Compression    byte
	Width          int
	Height         int
	DeclaredLength int
	IsCompressed   bool
}

// Format 由压缩标志推导载荷格式
func (h HeaderInfo) Format() FrameFormat {
	if h.IsCompressed {
		return FormatCompressed
	}
	return FormatRaw
}

// DecodedFrame 解码事件载荷。Data 与 Err 有且仅有一个非空
type DecodedFrame struct {
	Data     []byte
	Format   FrameFormat
	Width    int
	Height   int
	Metadata map[string]any
	Err      error
}

// NewFrame 构造成功帧事件
func NewFrame(data []byte, hdr HeaderInfo, meta map[string]any) DecodedFrame {
	return DecodedFrame{
		Data:     data,
		Format:   hdr.Format(),
		Width:    hdr.Width,
		Height:   hdr.Height,
		Metadata: meta,
	}
}

// NewErrorFrame 构造错误事件
func NewErrorFrame(err error, meta map[string]any) DecodedFrame {
	return DecodedFrame{Err: err, Metadata: meta}
}

// IsError 是否为错误事件
func (f DecodedFrame) IsError() bool { return f.Err != nil }

// Valid 校验 Data/Err 互斥且必有其一
func (f DecodedFrame) Valid() bool {
	return (f.Err == nil) != (len(f.Data) == 0)
}

// DecoderState 解码状态机状态
type DecoderState int

const (
	StateIdle         DecoderState = iota // 无帧头
	StateAccumulating                     // 已有帧头，累积载荷中
)

func (s DecoderState) String() string {
	if s == StateAccumulating {
		return "accumulating"
	}
	return "idle"
}

// DecoderStats 单个解码实例的累计统计
type DecoderStats struct {
	Frames               uint64 `json:"frames"`
	Errors               uint64 `json:"errors"`
	DroppedChunks        uint64 `json:"dropped_chunks"`
	DiscardedPartials    uint64 `json:"discarded_partials"`
	TruncatedBytes       uint64 `json:"truncated_bytes"`
	Resets               uint64 `json:"resets"`
	DroppedNotifications uint64 `json:"dropped_notifications"`
}
