package frame

// Arena 固定容量的字节累积区，追加超出容量的部分被丢弃并计数
type Arena struct {
	buf   []byte
	limit int
}

// NewArena 创建容量为 capacity 的累积区（底层内存延迟到首次追加时分配）
func NewArena(capacity int) *Arena {
	if capacity < 0 {
		capacity = 0
	}
	return &Arena{limit: capacity}
}

// Append 追加字节，返回实际接收与丢弃的字节数
func (a *Arena) Append(p []byte) (accepted, dropped int) {
	if len(p) == 0 {
		return 0, 0
	}
	if a.buf == nil {
		a.buf = make([]byte, 0, a.limit)
	}
	accepted = len(p)
	if free := a.limit - len(a.buf); accepted > free {
		accepted = free
	}
	a.buf = append(a.buf, p[:accepted]...)
	return accepted, len(p) - accepted
}

// Len 已累积字节数
func (a *Arena) Len() int { return len(a.buf) }

// Cap 容量上限
func (a *Arena) Cap() int { return a.limit }

// Bytes 返回已累积内容的视图，下一次 Reset/Append 后失效
func (a *Arena) Bytes() []byte { return a.buf }

// Reset 清空内容，保留底层内存复用
func (a *Arena) Reset() {
	if a.buf != nil {
		a.buf = a.buf[:0]
	}
}
