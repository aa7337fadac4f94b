package service

import (
	"context"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/contract"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/event"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/lifecycle"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/model"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service/submission"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/crypto_util"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/errno"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/monitor"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/utils/lock"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 50

type ClaimOptions struct {
	ChainID   int64
	EventID   [32]byte
	Sponsored bool
	LockTTL   time.Duration // 0 表示不加分布式锁
}

// CallInfo 对外展示的调用描述
type CallInfo struct {
	contract.Descriptor
	ChainID   int64 `json:"chain_id"`
	Sponsored bool  `json:"sponsored"`
}

// ClaimStatus 健康检查展示的运行信息
type ClaimStatus struct {
	ChainID   int64             `json:"chain_id"`
	Sponsored bool              `json:"sponsored"`
	Policy    submission.Policy `json:"policy"`
	InFlight  int               `json:"in_flight"`
}

// ClaimService 领取出勤证明
// 提交状态机在 submission 包; 本服务负责地址校验、跨实例加锁与落库
type ClaimService struct {
	store    ClaimStore
	registry *submission.Registry
	call     contract.Call
	opts     ClaimOptions
	locker   lock.DistributedLock
	log      *zap.Logger
}

// NewClaimService 会把自己注册为 registry 的 Listener，须在任何 Submit 之前创建
func NewClaimService(store ClaimStore, registry *submission.Registry, call contract.Call, opts ClaimOptions, locker lock.DistributedLock) *ClaimService {
	s := &ClaimService{
		store:    store,
		registry: registry,
		call:     call,
		opts:     opts,
		locker:   locker,
		log:      logger.Named("claim"),
	}
	registry.SetListener(s)
	return s
}

func lockKey(addr common.Address) string {
	return "poa:claim:" + addr.Hex()
}

func parseAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, errno.ErrInvalidAddress
	}
	return common.HexToAddress(address), nil
}

// Submit 发起一次领取，返回提交后的状态快照
func (s *ClaimService) Submit(ctx context.Context, address string, connected bool, fid uint64) (submission.Snapshot, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return submission.Snapshot{}, err
	}
	if !connected {
		return s.registry.Snapshot(addr), errno.ErrWalletNotConnected
	}

	locked := false
	if s.locker != nil && s.opts.LockTTL > 0 {
		ok, err := s.locker.Acquire(ctx, lockKey(addr), s.opts.LockTTL)
		if err != nil {
			s.log.Warn("获取领取锁失败，按单实例继续", zap.String("address", addr.Hex()), zap.Error(err))
		} else if !ok {
			return s.registry.Snapshot(addr), errno.ErrClaimLocked
		} else {
			locked = true
		}
	}

	sub := s.registry.Get(addr)
	_, err = sub.Submit(ctx, submission.Account{Address: addr, Connected: connected}, submission.FrameContext{FID: fid})
	if err != nil {
		if locked {
			s.release(ctx, addr)
		}
		return sub.Snapshot(), err
	}
	return sub.Snapshot(), nil
}

func (s *ClaimService) release(ctx context.Context, addr common.Address) {
	if s.locker == nil || s.opts.LockTTL <= 0 {
		return
	}
	if err := s.locker.Release(context.WithoutCancel(ctx), lockKey(addr)); err != nil {
		s.log.Warn("释放领取锁失败", zap.String("address", addr.Hex()), zap.Error(err))
	}
}

// OnSubmitted 创建领取记录
func (s *ClaimService) OnSubmitted(ctx context.Context, snap submission.Snapshot) error {
	claim := &model.Claim{
		RequestID:       snap.RequestID,
		Address:         snap.Account,
		ContractAddress: s.call.Address.Hex(),
		EventID:         hexutil.Encode(s.opts.EventID[:]),
		ChainID:         s.opts.ChainID,
		ClaimKey:        crypto_util.ClaimKey(s.opts.ChainID, s.call.Address.Hex(), snap.Account, s.opts.EventID),
		FID:             snap.FID,
		Status:          string(lifecycle.StatusInit),
		Phase:           string(lifecycle.PhaseIdle),
	}
	if err := s.store.Create(ctx, claim); err != nil {
		s.log.Error("创建领取记录失败", zap.String("request_id", snap.RequestID), zap.Error(err))
		return errno.ErrDatabase
	}
	monitor.Business.IncSubmitted()
	monitor.Business.SetInFlight(s.registry.InFlight())
	return nil
}

// OnStatus 落库并更新指标; 回到 idle 时释放锁
func (s *ClaimService) OnStatus(ctx context.Context, snap submission.Snapshot, st lifecycle.Status) {
	monitor.Business.ObserveStatus(string(st.Name))
	s.persist(ctx, snap, st)
	monitor.Business.SetInFlight(s.registry.InFlight())

	if st.Phase().Terminal() && snap.State == submission.StateIdle {
		if snap.SubmittedAt != nil {
			monitor.Business.ObserveSettled(time.Since(*snap.SubmittedAt).Seconds())
		}
		if addr, err := parseAddress(snap.Account); err == nil {
			s.release(ctx, addr)
		}
	}
}

func (s *ClaimService) persist(ctx context.Context, snap submission.Snapshot, st lifecycle.Status) {
	upd := ClaimUpdate{
		Status:      string(st.Name),
		Phase:       string(st.Phase()),
		TxHash:      st.TxHash(),
		BlockNumber: st.Data.BlockNumber,
		GasUsed:     st.Data.GasUsed,
	}
	switch e := st.Data.Error; {
	case e != nil:
		upd.ErrorCode, upd.ErrorMessage = e.Code, e.Message
	case st.Phase() == lifecycle.PhaseError:
		upd.ErrorCode = string(st.Name)
	case st.Phase() == lifecycle.PhaseSuccess:
		upd.ClearError = true
	}
	if st.Phase().Terminal() {
		settled := time.Now()
		if snap.SettledAt != nil {
			settled = *snap.SettledAt
		}
		upd.SettledAt = &settled
	}

	var minted *event.ClaimMintedEvent
	if st.Phase() == lifecycle.PhaseSuccess {
		minted = &event.ClaimMintedEvent{
			RequestID:       snap.RequestID,
			Address:         snap.Account,
			ContractAddress: s.call.Address.Hex(),
			EventID:         hexutil.Encode(s.opts.EventID[:]),
			ChainID:         s.opts.ChainID,
			TxHash:          st.TxHash(),
			BlockNumber:     st.Data.BlockNumber,
			FID:             snap.FID,
		}
	}

	if err := s.store.Update(ctx, snap.RequestID, upd, minted); err != nil {
		s.log.Error("更新领取记录失败",
			zap.String("request_id", snap.RequestID),
			zap.String("status", string(st.Name)),
			zap.Error(err))
	}
}

// Resolve 把外部确认的终态 (对账) 交给状态机; 进程内已无该请求时直接落库
func (s *ClaimService) Resolve(ctx context.Context, claim model.Claim, st lifecycle.Status) {
	addr := common.HexToAddress(claim.Address)
	if sub, ok := s.registry.Lookup(addr); ok && sub.Snapshot().RequestID == claim.RequestID {
		sub.OnStatus(ctx, claim.RequestID, st)
		return
	}
	now := time.Now()
	s.persist(ctx, submission.Snapshot{
		Account:   addr.Hex(),
		State:     submission.StateIdle,
		RequestID: claim.RequestID,
		FID:       claim.FID,
		SettledAt: &now,
	}, st)
}

// State 当前提交状态
func (s *ClaimService) State(address string) (submission.Snapshot, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return submission.Snapshot{}, err
	}
	return s.registry.Snapshot(addr), nil
}

// History 领取记录 (新的在前)
func (s *ClaimService) History(ctx context.Context, address string) ([]model.Claim, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	return s.store.ListByAddress(ctx, addr.Hex(), defaultHistoryLimit)
}

func (s *ClaimService) Status() ClaimStatus {
	return ClaimStatus{
		ChainID:   s.opts.ChainID,
		Sponsored: s.opts.Sponsored,
		Policy:    s.registry.Policy(),
		InFlight:  s.registry.InFlight(),
	}
}

func (s *ClaimService) Descriptor() (CallInfo, error) {
	d, err := s.call.Describe()
	if err != nil {
		return CallInfo{}, err
	}
	return CallInfo{Descriptor: d, ChainID: s.opts.ChainID, Sponsored: s.opts.Sponsored}, nil
}
