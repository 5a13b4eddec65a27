package frame

import "github.com/taoyao-code/lcd-gateway/internal/coremodel"

// HeaderParser 厂商帧头解析器
//
// Match 只做签名/魔数检查，返回 false 表示“不是帧头”（续包的正常情况），不是错误。
// Parse 仅在 Match 为 true 后调用：字段读不出来时返回包装 ErrInvalidHeader 的错误；
// 成功时返回帧头与载荷在 chunk 中的起始偏移。
type HeaderParser interface {
	Match(chunk []byte) bool
	Parse(chunk []byte) (coremodel.HeaderInfo, int, error)
}
