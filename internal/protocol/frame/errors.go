package frame

import "errors"

var (
	// ErrInvalidHeader 签名匹配但字段无法解析（长度不足或字段非法），以错误事件上报
	ErrInvalidHeader = errors.New("invalid header")
	// ErrUnexpectedContinuation 无帧头时收到续包，仅记录日志
	ErrUnexpectedContinuation = errors.New("unexpected continuation")
	// ErrDisposed 实例已释放后仍被调用，同步返回给调用方
	ErrDisposed = errors.New("decoder disposed")
	// ErrOversizeFrame 累积字节超过声明长度（reject 策略下以错误事件上报）
	ErrOversizeFrame = errors.New("oversize frame")
	// ErrFrameTooLarge 声明长度超过协议帧上限，以错误事件上报
	ErrFrameTooLarge = errors.New("declared frame length exceeds limit")
)

// ErrorKind 错误分类标签（用于指标）
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidHeader):
		return "invalid_header"
	case errors.Is(err, ErrFrameTooLarge):
		return "frame_too_large"
	case errors.Is(err, ErrOversizeFrame):
		return "oversize"
	case errors.Is(err, ErrUnexpectedContinuation):
		return "unexpected_continuation"
	case errors.Is(err, ErrDisposed):
		return "disposed"
	default:
		return "other"
	}
}
