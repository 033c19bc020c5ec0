package module

import (
	"time"
)

// 合并引擎公共逻辑
// 同一 (经销商, 模块) 的 run 已被调度器串行化，这里不再加锁，
// 只依赖数据库事务保证“表头 + 行项目整体替换”的原子性

// newerThan 判断来源记录是否比库内记录新
// 来源缺失 modified_time 视为不更新（按 DUPLICATE 处理），
// 库内缺失 modified_time 视为可被任何带时间戳的来源覆盖
func newerThan(incoming, stored *time.Time) bool {
	if incoming == nil {
		return false
	}
	if stored == nil {
		return true
	}
	return incoming.After(*stored)
}
