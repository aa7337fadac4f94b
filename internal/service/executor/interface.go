package executor

import (
	"context"
	"math/big"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/contract"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/lifecycle"

	"github.com/ethereum/go-ethereum/common"
)

// Request 一次交易执行请求
type Request struct {
	ID        string          // 请求 ID，用于日志与幂等
	ChainID   *big.Int        // 目标链
	Calls     []contract.Call // 合约调用列表 (本服务固定为一个 mintAttendance)
	Sponsored bool            // 是否由 relayer 代付 Gas
	From      common.Address  // 发起领取的用户地址
}

// Executor 交易执行器
// Execute 阻塞直到终态 (success / error)，期间按顺序向 statuses 上报状态，
// 返回前关闭 statuses。调用方通常在独立 goroutine 中运行它。
type Executor interface {
	Execute(ctx context.Context, req Request, statuses chan<- lifecycle.Status)
}

// emit 在 ctx 取消时放弃发送，避免阻塞在无人读取的 channel 上
func emit(ctx context.Context, statuses chan<- lifecycle.Status, s lifecycle.Status) bool {
	select {
	case statuses <- s:
		return true
	case <-ctx.Done():
		return false
	}
}
