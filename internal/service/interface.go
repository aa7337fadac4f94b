package service

import (
	"context"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/event"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/model"
)

// ClaimUpdate 一次生命周期上报需要落库的字段
type ClaimUpdate struct {
	Status       string
	Phase        string
	TxHash       string
	BlockNumber  uint64
	GasUsed      uint64
	ErrorCode    string
	ErrorMessage string
	ClearError   bool // 成功时清掉之前记录的错误 (例如回执超时后被对账为成功)
	SettledAt    *time.Time
}

// ClaimStore 领取记录持久化
type ClaimStore interface {
	Create(ctx context.Context, claim *model.Claim) error
	// Update 更新状态; minted 非空时在同一事务中写入 Outbox 消息
	Update(ctx context.Context, requestID string, upd ClaimUpdate, minted *event.ClaimMintedEvent) error
	GetByRequestID(ctx context.Context, requestID string) (*model.Claim, error)
	ListByAddress(ctx context.Context, address string, limit int) ([]model.Claim, error)
	// ListStalePending 已发出交易但长时间未结束的记录，
	// 包括停在 pending 的，以及等待回执超时、结果未知的 error 记录
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]model.Claim, error)
}

// FrameStore 宿主平台用户持久化
type FrameStore interface {
	Upsert(ctx context.Context, user *model.FrameUser) error
	Get(ctx context.Context, fid uint64) (*model.FrameUser, error)
}
