package service

import (
	"context"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/model"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/errno"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/monitor"
)

// FrameService 记录在宿主平台中保存了 mini app 的用户
type FrameService struct {
	store FrameStore
}

func NewFrameService(store FrameStore) *FrameService {
	return &FrameService{store: store}
}

// Add 幂等; address 可为空
func (s *FrameService) Add(ctx context.Context, fid uint64, address string) (*model.FrameUser, error) {
	if fid == 0 {
		return nil, errno.ErrBind.WithMessage("fid is required")
	}
	user := &model.FrameUser{FID: fid}
	if address != "" {
		addr, err := parseAddress(address)
		if err != nil {
			return nil, err
		}
		user.Address = addr.Hex()
	}

	if err := s.store.Upsert(ctx, user); err != nil {
		return nil, errno.ErrDatabase
	}
	monitor.Business.IncFrameAdded()
	return user, nil
}

func (s *FrameService) Get(ctx context.Context, fid uint64) (*model.FrameUser, error) {
	return s.store.Get(ctx, fid)
}
