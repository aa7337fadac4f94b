// Package submission bridges a user's claim request to the transaction
// executor and folds the executor's asynchronous lifecycle statuses back into
// a per-account {idle, submitting} state.
//
// Connection state is passed in explicitly on every Submit; there is no
// ambient wallet accessor.
package submission

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/contract"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/lifecycle"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service/executor"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/errno"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
)

// Policy 决定 error 状态是否结束提交
type Policy string

const (
	// PolicyStrict error 与 success 一样回到 idle，并记录错误
	PolicyStrict Policy = "strict"
	// PolicyLegacy 只有 success 回到 idle; error 后一直停留在 submitting
	PolicyLegacy Policy = "legacy"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyStrict, "":
		return PolicyStrict, nil
	case PolicyLegacy:
		return PolicyLegacy, nil
	}
	return "", fmt.Errorf("unknown submission policy %q", s)
}

// Account 调用方注入的钱包连接状态
type Account struct {
	Address   common.Address
	Connected bool
}

// FrameContext 宿主平台 (frame) 上下文
type FrameContext struct {
	FID uint64
}

// Snapshot 某一时刻的提交状态 (只读副本)
type Snapshot struct {
	Account     string             `json:"account"`
	State       State              `json:"state"`
	RequestID   string             `json:"request_id,omitempty"`
	FID         uint64             `json:"fid,omitempty"`
	LastStatus  *lifecycle.Status  `json:"last_status,omitempty"`
	LastError   *lifecycle.TxError `json:"last_error,omitempty"`
	TxHash      string             `json:"tx_hash,omitempty"`
	SubmittedAt *time.Time         `json:"submitted_at,omitempty"`
	SettledAt   *time.Time         `json:"settled_at,omitempty"`
}

// Listener 观察提交与状态变化 (持久化、指标)
type Listener interface {
	// OnSubmitted 在执行器启动前同步调用; 返回错误则撤销本次提交
	OnSubmitted(ctx context.Context, snap Snapshot) error
	// OnStatus 每个状态处理完成后调用，snap 为处理后的状态
	OnStatus(ctx context.Context, snap Snapshot, status lifecycle.Status)
}

type Options struct {
	ChainID   *big.Int
	Sponsored bool
	Policy    Policy
}

// Submitter 单个账户的提交状态机
type Submitter struct {
	account  common.Address
	call     contract.Call
	exec     executor.Executor
	opts     Options
	listener Listener

	now   func() time.Time
	newID func() string

	mu          sync.Mutex
	state       State
	requestID   string
	fid         uint64
	last        *lifecycle.Status
	lastErr     *lifecycle.TxError
	txHash      string
	submittedAt time.Time
	settledAt   time.Time
}

func NewSubmitter(account common.Address, call contract.Call, exec executor.Executor, opts Options, listener Listener) *Submitter {
	if opts.Policy == "" {
		opts.Policy = PolicyStrict
	}
	return &Submitter{
		account:  account,
		call:     call,
		exec:     exec,
		opts:     opts,
		listener: listener,
		now:      time.Now,
		newID:    uuid.NewString,
		state:    StateIdle,
	}
}

// Submit idle -> submitting，并把固定的调用描述交给执行器
// 执行在后台进行，不受调用方 ctx 取消的影响
func (s *Submitter) Submit(ctx context.Context, acct Account, frame FrameContext) (string, error) {
	if !acct.Connected {
		return "", errno.ErrWalletNotConnected
	}
	if acct.Address != s.account {
		return "", errno.ErrInvalidAddress.WithMessage("account does not match submitter")
	}

	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return "", errno.ErrSubmissionInFlight
	}
	prev := s.saveLocked()
	s.state = StateSubmitting
	s.requestID = s.newID()
	s.fid = frame.FID
	s.last, s.lastErr, s.txHash = nil, nil, ""
	s.submittedAt, s.settledAt = s.now(), time.Time{}
	reqID := s.requestID
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.listener != nil {
		if err := s.listener.OnSubmitted(ctx, snap); err != nil {
			s.mu.Lock()
			s.restoreLocked(prev)
			s.mu.Unlock()
			return "", err
		}
	}

	req := executor.Request{
		ID:        reqID,
		ChainID:   s.opts.ChainID,
		Calls:     []contract.Call{s.call},
		Sponsored: s.opts.Sponsored,
		From:      s.account,
	}
	runCtx := context.WithoutCancel(ctx)
	statuses := make(chan lifecycle.Status, 8)

	go s.exec.Execute(runCtx, req, statuses)
	go s.drain(runCtx, reqID, statuses)

	return reqID, nil
}

func (s *Submitter) drain(ctx context.Context, reqID string, statuses <-chan lifecycle.Status) {
	terminal := false
	for st := range statuses {
		if st.Phase().Terminal() {
			terminal = true
		}
		s.OnStatus(ctx, reqID, st)
	}
	if !terminal {
		logger.Warn("执行器未上报终态即结束",
			zap.String("account", s.account.Hex()), zap.String("request_id", reqID))
	}
}

// OnStatus 处理一次生命周期上报; 非当前请求的上报被忽略
func (s *Submitter) OnStatus(ctx context.Context, reqID string, st lifecycle.Status) {
	logger.Info("Transaction status",
		zap.String("account", s.account.Hex()),
		zap.String("request_id", reqID),
		zap.String("status", string(st.Name)),
		zap.Any("data", st.Data))

	s.mu.Lock()
	if reqID != s.requestID {
		s.mu.Unlock()
		logger.Debug("忽略过期请求的状态", zap.String("request_id", reqID))
		return
	}

	status := st
	s.last = &status
	if h := st.TxHash(); h != "" {
		s.txHash = h
	}

	switch st.Phase() {
	case lifecycle.PhaseSuccess:
		s.lastErr = nil
		s.settleLocked()
	case lifecycle.PhaseError:
		s.lastErr = st.Data.Error
		if s.lastErr == nil {
			s.lastErr = &lifecycle.TxError{Code: string(st.Name), Message: "executor reported " + string(st.Name)}
		}
		if s.opts.Policy == PolicyStrict {
			s.settleLocked()
		}
	case lifecycle.PhasePending, lifecycle.PhaseIdle:
		// 仅记录
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.OnStatus(ctx, snap, st)
	}
}

func (s *Submitter) settleLocked() {
	if s.state != StateSubmitting {
		return
	}
	s.state = StateIdle
	s.settledAt = s.now()
}

func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Submitter) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Submitter) snapshotLocked() Snapshot {
	snap := Snapshot{
		Account:   s.account.Hex(),
		State:     s.state,
		RequestID: s.requestID,
		FID:       s.fid,
		LastError: s.lastErr,
		TxHash:    s.txHash,
	}
	if s.last != nil {
		last := *s.last
		snap.LastStatus = &last
	}
	if !s.submittedAt.IsZero() {
		t := s.submittedAt
		snap.SubmittedAt = &t
	}
	if !s.settledAt.IsZero() {
		t := s.settledAt
		snap.SettledAt = &t
	}
	return snap
}

type savedState struct {
	state       State
	requestID   string
	fid         uint64
	last        *lifecycle.Status
	lastErr     *lifecycle.TxError
	txHash      string
	submittedAt time.Time
	settledAt   time.Time
}

func (s *Submitter) saveLocked() savedState {
	return savedState{s.state, s.requestID, s.fid, s.last, s.lastErr, s.txHash, s.submittedAt, s.settledAt}
}

func (s *Submitter) restoreLocked(p savedState) {
	s.state, s.requestID, s.fid = p.state, p.requestID, p.fid
	s.last, s.lastErr, s.txHash = p.last, p.lastErr, p.txHash
	s.submittedAt, s.settledAt = p.submittedAt, p.settledAt
}
