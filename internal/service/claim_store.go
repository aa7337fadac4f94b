package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/event"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/lifecycle"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/model"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/errno"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormClaimStore ClaimStore 的 Postgres 实现
type GormClaimStore struct {
	db *gorm.DB
}

func NewGormClaimStore(db *gorm.DB) *GormClaimStore {
	return &GormClaimStore{db: db}
}

func (s *GormClaimStore) Create(ctx context.Context, claim *model.Claim) error {
	if err := s.db.WithContext(ctx).Create(claim).Error; err != nil {
		return fmt.Errorf("create claim: %w", err)
	}
	return nil
}

func (s *GormClaimStore) Update(ctx context.Context, requestID string, upd ClaimUpdate, minted *event.ClaimMintedEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{
			"status": upd.Status,
			"phase":  upd.Phase,
		}
		if upd.TxHash != "" {
			fields["tx_hash"] = upd.TxHash
		}
		if upd.BlockNumber != 0 {
			fields["block_number"] = upd.BlockNumber
		}
		if upd.GasUsed != 0 {
			fields["gas_used"] = upd.GasUsed
		}
		if upd.ErrorCode != "" {
			fields["error_code"] = upd.ErrorCode
			fields["error_message"] = upd.ErrorMessage
		} else if upd.ClearError {
			fields["error_code"] = ""
			fields["error_message"] = ""
		}
		if upd.SettledAt != nil {
			fields["settled_at"] = *upd.SettledAt
		}

		res := tx.Model(&model.Claim{}).Where("request_id = ?", requestID).Updates(fields)
		if res.Error != nil {
			return fmt.Errorf("update claim: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errno.ErrClaimNotFound
		}

		if minted != nil {
			// 与状态更新同一事务，保证事件不丢
			if err := model.CreateOutboxMessage(tx, event.TopicClaimMinted, minted.Address, minted); err != nil {
				return fmt.Errorf("create outbox message: %w", err)
			}
		}
		return nil
	})
}

func (s *GormClaimStore) GetByRequestID(ctx context.Context, requestID string) (*model.Claim, error) {
	var claim model.Claim
	err := s.db.WithContext(ctx).Where("request_id = ?", requestID).First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrClaimNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return &claim, nil
}

func (s *GormClaimStore) ListByAddress(ctx context.Context, address string, limit int) ([]model.Claim, error) {
	var claims []model.Claim
	err := s.db.WithContext(ctx).
		Where("address = ?", address).
		Order("id DESC").
		Limit(limit).
		Find(&claims).Error
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claims, nil
}

func (s *GormClaimStore) ListStalePending(ctx context.Context, before time.Time, limit int) ([]model.Claim, error) {
	var claims []model.Claim
	err := s.db.WithContext(ctx).
		Where("tx_hash <> '' AND updated_at < ?", before).
		Where("(phase = ? OR (phase = ? AND error_code = ?))",
			string(lifecycle.PhasePending), string(lifecycle.PhaseError), lifecycle.CodeReceiptTimeout).
		Order("id ASC").
		Limit(limit).
		Find(&claims).Error
	if err != nil {
		return nil, fmt.Errorf("list stale claims: %w", err)
	}
	return claims, nil
}

// GormFrameStore FrameStore 的 Postgres 实现
type GormFrameStore struct {
	db *gorm.DB
}

func NewGormFrameStore(db *gorm.DB) *GormFrameStore {
	return &GormFrameStore{db: db}
}

// Upsert fid 冲突时只更新地址; 地址为空则保持原记录
func (s *GormFrameStore) Upsert(ctx context.Context, user *model.FrameUser) error {
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "fid"}},
		DoUpdates: clause.AssignmentColumns([]string{"address", "updated_at"}),
	}
	if user.Address == "" {
		onConflict = clause.OnConflict{Columns: []clause.Column{{Name: "fid"}}, DoNothing: true}
	}
	err := s.db.WithContext(ctx).Clauses(onConflict).Create(user).Error
	if err != nil {
		return fmt.Errorf("upsert frame user: %w", err)
	}
	return nil
}

func (s *GormFrameStore) Get(ctx context.Context, fid uint64) (*model.FrameUser, error) {
	var user model.FrameUser
	err := s.db.WithContext(ctx).Where("fid = ?", fid).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrFrameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get frame user: %w", err)
	}
	return &user, nil
}
