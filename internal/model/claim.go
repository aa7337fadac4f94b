package model

import (
	"time"
)

// Claim 出勤证明领取记录，一次 Submit 对应一行
type Claim struct {
	ID              uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID       string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"request_id"`
	Address         string     `gorm:"type:varchar(42);not null;index" json:"address"`
	ContractAddress string     `gorm:"type:varchar(42);not null" json:"contract_address"`
	EventID         string     `gorm:"type:varchar(66);not null" json:"event_id"`
	ChainID         int64      `gorm:"not null" json:"chain_id"`
	ClaimKey        string     `gorm:"type:varchar(64);not null;index" json:"claim_key"` // blake3(chain, contract, account, event)
	FID             uint64     `gorm:"index" json:"fid,omitempty"`
	Status          string     `gorm:"type:varchar(32);not null;default:'init';index" json:"status"` // 最近一次生命周期状态名
	Phase           string     `gorm:"type:varchar(16);not null;default:'idle'" json:"phase"`         // idle, pending, success, error
	TxHash          string     `gorm:"type:varchar(66)" json:"tx_hash,omitempty"`
	BlockNumber     uint64     `json:"block_number,omitempty"`
	GasUsed         uint64     `json:"gas_used,omitempty"`
	ErrorCode       string     `gorm:"type:varchar(64)" json:"error_code,omitempty"`
	ErrorMessage    string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	SettledAt       *time.Time `json:"settled_at,omitempty"`
}

func (Claim) TableName() string {
	return "claims"
}

// FrameUser 在宿主平台中保存了 mini app 的用户
type FrameUser struct {
	FID       uint64    `gorm:"primaryKey;autoIncrement:false" json:"fid"`
	Address   string    `gorm:"type:varchar(42);index" json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FrameUser) TableName() string {
	return "frame_users"
}
