package executor

import (
	"context"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/lifecycle"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/crypto_util"

	"github.com/ethereum/go-ethereum/common"
)

// SimulatedExecutor 不上链，用于本地开发 (chain.simulate) 与 RPC 不可用时的降级
type SimulatedExecutor struct {
	Delay    time.Duration // 每个阶段之间的等待
	FailCode string        // 非空时以该错误码结束
}

func NewSimulatedExecutor(delay time.Duration) *SimulatedExecutor {
	return &SimulatedExecutor{Delay: delay}
}

func (s *SimulatedExecutor) Execute(ctx context.Context, req Request, statuses chan<- lifecycle.Status) {
	defer close(statuses)

	if !req.Sponsored {
		emit(ctx, statuses, lifecycle.Failed(lifecycle.CodeSponsorshipRequired, "non-sponsored calls must be signed by the user's wallet"))
		return
	}

	if !emit(ctx, statuses, lifecycle.Building()) || !s.sleep(ctx) {
		return
	}

	// 模拟 hash: keccak256(request id)
	hash := common.Hash(crypto_util.Keccak256([]byte(req.ID))).Hex()
	if !emit(ctx, statuses, lifecycle.Pending(hash)) || !s.sleep(ctx) {
		return
	}

	if s.FailCode != "" {
		failed := lifecycle.Failed(s.FailCode, "simulated failure")
		failed.Data.TxHashes = []string{hash}
		emit(ctx, statuses, failed)
		return
	}
	emit(ctx, statuses, lifecycle.Status{
		Name: lifecycle.StatusSuccess,
		Data: lifecycle.Data{TxHashes: []string{hash}, GasUsed: 52000},
	})
}

func (s *SimulatedExecutor) sleep(ctx context.Context) bool {
	if s.Delay <= 0 {
		return true
	}
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
