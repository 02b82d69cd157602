package match

import "github.com/play/duel/pkg/wire"

// 对局生命周期状态机
// init → 发牌 → 对局中 → finished/cancelled（→ deleted）
// 取消后文档并不立刻消失：先落终态、等一个宽限期再删，给对端的监听
// 留出观察到状态变化的时间；没看到终态就发现文档没了的一方按隐式取消处理

// Normalize 空状态按 waiting 处理（老文档可能缺这个字段）
func Normalize(s wire.Status) wire.Status {
	if s == "" {
		return wire.StatusWaiting
	}
	return s
}

// CanTransition 判断状态迁移是否合法
func CanTransition(from, to wire.Status) bool {
	from = Normalize(from)
	if from == to {
		return false
	}

	switch from {
	case wire.StatusWaiting:
		return to == wire.StatusPendingAcceptance || to == wire.StatusStarted || to == wire.StatusCancelled
	case wire.StatusPendingAcceptance:
		return to == wire.StatusStarted || to == wire.StatusCancelled
	case wire.StatusStarted:
		return to == wire.StatusInProgress || to == wire.StatusFinished || to == wire.StatusCancelled
	case wire.StatusInProgress:
		return to == wire.StatusFinished || to == wire.StatusCancelled
	case wire.StatusFinished, wire.StatusCancelled:
		return to == wire.StatusDeleted
	}
	return false
}

// endReason 从终态文档里提取给用户看的结束原因
func endReason(d *wire.Document) string {
	switch d.Status {
	case wire.StatusCancelled:
		if d.CancellationReason != "" {
			return d.CancellationReason
		}
		return "cancelled"
	case wire.StatusFinished:
		return "finished"
	case wire.StatusDeleted:
		return "deleted"
	}
	return string(d.Status)
}
