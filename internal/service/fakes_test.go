package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/event"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/lifecycle"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/model"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/errno"
)

// memClaimStore 内存版 ClaimStore
type memClaimStore struct {
	mu      sync.Mutex
	nextID  uint64
	claims  map[string]*model.Claim
	minted  []event.ClaimMintedEvent
	updates chan ClaimUpdate
	failOn  string // 非空时 Create 返回错误
}

func newMemClaimStore() *memClaimStore {
	return &memClaimStore{claims: make(map[string]*model.Claim), updates: make(chan ClaimUpdate, 32)}
}

func (m *memClaimStore) Create(_ context.Context, c *model.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" {
		return errno.ErrDatabase.WithMessage(m.failOn)
	}
	m.nextID++
	c.ID = m.nextID
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	cp := *c
	m.claims[c.RequestID] = &cp
	return nil
}

func (m *memClaimStore) Update(_ context.Context, requestID string, upd ClaimUpdate, minted *event.ClaimMintedEvent) error {
	m.mu.Lock()
	c, ok := m.claims[requestID]
	if !ok {
		m.mu.Unlock()
		return errno.ErrClaimNotFound
	}
	c.Status, c.Phase = upd.Status, upd.Phase
	if upd.TxHash != "" {
		c.TxHash = upd.TxHash
	}
	if upd.BlockNumber != 0 {
		c.BlockNumber = upd.BlockNumber
	}
	if upd.GasUsed != 0 {
		c.GasUsed = upd.GasUsed
	}
	if upd.ErrorCode != "" {
		c.ErrorCode, c.ErrorMessage = upd.ErrorCode, upd.ErrorMessage
	} else if upd.ClearError {
		c.ErrorCode, c.ErrorMessage = "", ""
	}
	if upd.SettledAt != nil {
		c.SettledAt = upd.SettledAt
	}
	c.UpdatedAt = time.Now()
	if minted != nil {
		m.minted = append(m.minted, *minted)
	}
	m.mu.Unlock()
	m.updates <- upd
	return nil
}

func (m *memClaimStore) GetByRequestID(_ context.Context, requestID string) (*model.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[requestID]
	if !ok {
		return nil, errno.ErrClaimNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memClaimStore) ListByAddress(_ context.Context, address string, limit int) ([]model.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Claim
	for _, c := range m.claims {
		if c.Address == address {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memClaimStore) ListStalePending(_ context.Context, before time.Time, limit int) ([]model.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Claim
	for _, c := range m.claims {
		timedOut := c.Phase == string(lifecycle.PhaseError) && c.ErrorCode == lifecycle.CodeReceiptTimeout
		if (c.Phase == string(lifecycle.PhasePending) || timedOut) && c.TxHash != "" && c.UpdatedAt.Before(before) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// put 直接写入一条记录 (对账测试用)
func (m *memClaimStore) put(c model.Claim) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	m.claims[c.RequestID] = &c
}

// age 把记录的更新时间往前推 d
func (m *memClaimStore) age(requestID string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.claims[requestID]; ok {
		c.UpdatedAt = c.UpdatedAt.Add(-d)
	}
}

type memFrameStore struct {
	mu    sync.Mutex
	users map[uint64]model.FrameUser
}

func newMemFrameStore() *memFrameStore {
	return &memFrameStore{users: make(map[uint64]model.FrameUser)}
}

func (m *memFrameStore) Upsert(_ context.Context, u *model.FrameUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.users[u.FID]; ok {
		if u.Address == "" {
			*u = old
			return nil
		}
		u.CreatedAt = old.CreatedAt
	} else {
		u.CreatedAt = time.Now()
	}
	u.UpdatedAt = time.Now()
	m.users[u.FID] = *u
	return nil
}

func (m *memFrameStore) Get(_ context.Context, fid uint64) (*model.FrameUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[fid]
	if !ok {
		return nil, errno.ErrFrameNotFound
	}
	return &u, nil
}
