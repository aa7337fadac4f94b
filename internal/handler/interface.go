package handler

import (
	"context"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/model"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service/submission"
)

// ClaimAPI *service.ClaimService 满足该接口
type ClaimAPI interface {
	Submit(ctx context.Context, address string, connected bool, fid uint64) (submission.Snapshot, error)
	State(address string) (submission.Snapshot, error)
	History(ctx context.Context, address string) ([]model.Claim, error)
	Descriptor() (service.CallInfo, error)
}

type IdentityAPI interface {
	Lookup(ctx context.Context, address string) (*service.Identity, error)
}

type FrameAPI interface {
	Add(ctx context.Context, fid uint64, address string) (*model.FrameUser, error)
	Get(ctx context.Context, fid uint64) (*model.FrameUser, error)
}
