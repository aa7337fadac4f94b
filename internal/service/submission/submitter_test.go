package submission

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/contract"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/lifecycle"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service/executor"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/errno"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAccount = common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")

// scriptedExecutor 把 status channel 交给测试，由测试决定上报什么
type scriptedExecutor struct {
	mu       sync.Mutex
	requests []executor.Request
	ctxs     []context.Context
	feeds    chan chan<- lifecycle.Status
}

func newScriptedExecutor() *scriptedExecutor {
	return &scriptedExecutor{feeds: make(chan chan<- lifecycle.Status, 4)}
}

func (e *scriptedExecutor) Execute(ctx context.Context, req executor.Request, statuses chan<- lifecycle.Status) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.ctxs = append(e.ctxs, ctx)
	e.mu.Unlock()
	e.feeds <- statuses
}

func (e *scriptedExecutor) next(t *testing.T) chan<- lifecycle.Status {
	t.Helper()
	select {
	case ch := <-e.feeds:
		return ch
	case <-time.After(2 * time.Second):
		t.Fatal("executor was not invoked")
		return nil
	}
}

func (e *scriptedExecutor) calls() []executor.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]executor.Request(nil), e.requests...)
}

type recordingListener struct {
	mu        sync.Mutex
	submitted []Snapshot
	statuses  []lifecycle.Status
	failWith  error
	seen      chan Snapshot
}

func newRecordingListener() *recordingListener {
	return &recordingListener{seen: make(chan Snapshot, 16)}
}

func (l *recordingListener) OnSubmitted(_ context.Context, snap Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return l.failWith
	}
	l.submitted = append(l.submitted, snap)
	return nil
}

func (l *recordingListener) OnStatus(_ context.Context, snap Snapshot, st lifecycle.Status) {
	l.mu.Lock()
	l.statuses = append(l.statuses, st)
	l.mu.Unlock()
	l.seen <- snap
}

// wait 等待 listener 收到下一次状态处理结果
func (l *recordingListener) wait(t *testing.T) Snapshot {
	t.Helper()
	select {
	case snap := <-l.seen:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("status was not processed")
		return Snapshot{}
	}
}

func demoCall(t *testing.T) contract.Call {
	t.Helper()
	id, err := contract.ParseEventID(contract.DemoEventID)
	require.NoError(t, err)
	call, err := contract.MintAttendanceCall(common.HexToAddress(contract.DemoContractAddress), id)
	require.NoError(t, err)
	return call
}

func newTestSubmitter(t *testing.T, policy Policy) (*Submitter, *scriptedExecutor, *recordingListener) {
	t.Helper()
	exec := newScriptedExecutor()
	l := newRecordingListener()
	s := NewSubmitter(testAccount, demoCall(t), exec, Options{
		ChainID:   big.NewInt(contract.BaseSepoliaChainID),
		Sponsored: true,
		Policy:    policy,
	}, l)
	return s, exec, l
}

var connected = Account{Address: testAccount, Connected: true}

func TestSubmit_IdleToSubmittingOnce(t *testing.T) {
	s, exec, l := newTestSubmitter(t, PolicyStrict)
	assert.Equal(t, StateIdle, s.State())

	id, err := s.Submit(context.Background(), connected, FrameContext{FID: 42})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, StateSubmitting, s.State())

	_, err = s.Submit(context.Background(), connected, FrameContext{})
	assert.ErrorIs(t, err, errno.ErrSubmissionInFlight)

	exec.next(t)
	assert.Len(t, exec.calls(), 1)
	require.Len(t, l.submitted, 1)
	assert.Equal(t, id, l.submitted[0].RequestID)
	assert.Equal(t, uint64(42), l.submitted[0].FID)
	assert.Equal(t, StateSubmitting, l.submitted[0].State)
}

func TestSubmit_NotConnected(t *testing.T) {
	s, exec, _ := newTestSubmitter(t, PolicyStrict)

	_, err := s.Submit(context.Background(), Account{Address: testAccount}, FrameContext{})
	assert.ErrorIs(t, err, errno.ErrWalletNotConnected)
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, exec.calls())
}

func TestSubmit_WrongAccount(t *testing.T) {
	s, _, _ := newTestSubmitter(t, PolicyStrict)

	other := Account{Address: common.HexToAddress("0x01"), Connected: true}
	_, err := s.Submit(context.Background(), other, FrameContext{})
	assert.ErrorIs(t, err, errno.ErrInvalidAddress)
	assert.Equal(t, StateIdle, s.State())
}

func TestSuccessReturnsToIdle(t *testing.T) {
	for _, policy := range []Policy{PolicyStrict, PolicyLegacy} {
		t.Run(string(policy), func(t *testing.T) {
			s, exec, l := newTestSubmitter(t, policy)
			_, err := s.Submit(context.Background(), connected, FrameContext{})
			require.NoError(t, err)

			ch := exec.next(t)
			ch <- lifecycle.Pending("0xabc")
			snap := l.wait(t)
			assert.Equal(t, StateSubmitting, snap.State)
			assert.Equal(t, "0xabc", snap.TxHash)

			ch <- lifecycle.Status{Name: lifecycle.StatusSuccess, Data: lifecycle.Data{TxHashes: []string{"0xabc"}}}
			close(ch)
			snap = l.wait(t)
			assert.Equal(t, StateIdle, snap.State)
			assert.Equal(t, StateIdle, s.State())
			assert.Nil(t, snap.LastError)
			assert.NotNil(t, snap.SettledAt)
		})
	}
}

func TestLegacyErrorStaysSubmitting(t *testing.T) {
	s, exec, l := newTestSubmitter(t, PolicyLegacy)
	_, err := s.Submit(context.Background(), connected, FrameContext{})
	require.NoError(t, err)

	ch := exec.next(t)
	ch <- lifecycle.Failed(lifecycle.CodeReverted, "transaction reverted")
	close(ch)

	snap := l.wait(t)
	assert.Equal(t, StateSubmitting, snap.State)
	assert.Equal(t, StateSubmitting, s.State())
	require.NotNil(t, snap.LastError)
	assert.Equal(t, lifecycle.CodeReverted, snap.LastError.Code)

	_, err = s.Submit(context.Background(), connected, FrameContext{})
	assert.ErrorIs(t, err, errno.ErrSubmissionInFlight)
	assert.Len(t, exec.calls(), 1)
}

func TestStrictErrorReturnsToIdle(t *testing.T) {
	s, exec, l := newTestSubmitter(t, PolicyStrict)
	_, err := s.Submit(context.Background(), connected, FrameContext{})
	require.NoError(t, err)

	ch := exec.next(t)
	ch <- lifecycle.Failed(lifecycle.CodeSendFailed, "nonce too low")
	close(ch)

	snap := l.wait(t)
	assert.Equal(t, StateIdle, snap.State)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, lifecycle.CodeSendFailed, snap.LastError.Code)

	// 可以再次提交，且上一次的错误被清空
	_, err = s.Submit(context.Background(), connected, FrameContext{})
	require.NoError(t, err)
	exec.next(t)
	assert.Nil(t, s.Snapshot().LastError)
	assert.Equal(t, StateSubmitting, s.State())
}

func TestUnknownStatusIsError(t *testing.T) {
	s, exec, l := newTestSubmitter(t, PolicyStrict)
	_, err := s.Submit(context.Background(), connected, FrameContext{})
	require.NoError(t, err)

	ch := exec.next(t)
	ch <- lifecycle.Status{Name: "somethingNew"}
	close(ch)

	snap := l.wait(t)
	assert.Equal(t, StateIdle, snap.State)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, "somethingNew", snap.LastError.Code)
}

func TestDescriptorIdenticalAcrossSubmissions(t *testing.T) {
	s, exec, l := newTestSubmitter(t, PolicyStrict)

	for i := 0; i < 2; i++ {
		_, err := s.Submit(context.Background(), connected, FrameContext{})
		require.NoError(t, err)
		ch := exec.next(t)
		ch <- lifecycle.Status{Name: lifecycle.StatusSuccess}
		close(ch)
		l.wait(t)
	}

	reqs := exec.calls()
	require.Len(t, reqs, 2)
	want, err := contract.ParseEventID(contract.DemoEventID)
	require.NoError(t, err)

	for _, req := range reqs {
		assert.True(t, req.Sponsored)
		assert.Equal(t, testAccount, req.From)
		assert.Equal(t, int64(contract.BaseSepoliaChainID), req.ChainID.Int64())
		require.Len(t, req.Calls, 1)
		call := req.Calls[0]
		assert.Equal(t, contract.MintAttendance, call.FunctionName)
		require.Len(t, call.Args, 2)
		assert.Equal(t, want, call.Args[0])
		assert.Equal(t, []byte{}, call.Args[1])
	}

	in0, err := reqs[0].Calls[0].EncodeInput()
	require.NoError(t, err)
	in1, err := reqs[1].Calls[0].EncodeInput()
	require.NoError(t, err)
	assert.Equal(t, in0, in1)
	assert.NotEqual(t, reqs[0].ID, reqs[1].ID)
}

func TestStaleStatusIgnored(t *testing.T) {
	s, exec, _ := newTestSubmitter(t, PolicyStrict)
	_, err := s.Submit(context.Background(), connected, FrameContext{})
	require.NoError(t, err)
	exec.next(t)

	s.OnStatus(context.Background(), "not-the-current-request", lifecycle.Status{Name: lifecycle.StatusSuccess})
	assert.Equal(t, StateSubmitting, s.State())
	assert.Nil(t, s.Snapshot().LastStatus)
}

func TestListenerRejectionRollsBack(t *testing.T) {
	s, exec, l := newTestSubmitter(t, PolicyStrict)
	l.failWith = errors.New("db down")

	_, err := s.Submit(context.Background(), connected, FrameContext{})
	assert.EqualError(t, err, "db down")
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.Snapshot().RequestID)
	assert.Empty(t, exec.calls())
}

func TestSubmitOutlivesCallerContext(t *testing.T) {
	s, exec, _ := newTestSubmitter(t, PolicyStrict)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := s.Submit(ctx, connected, FrameContext{})
	require.NoError(t, err)
	exec.next(t)
	cancel()

	exec.mu.Lock()
	runCtx := exec.ctxs[0]
	exec.mu.Unlock()
	assert.NoError(t, runCtx.Err())
	assert.Equal(t, StateSubmitting, s.State())
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyStrict, false},
		{"strict", PolicyStrict, false},
		{"legacy", PolicyLegacy, false},
		{"lenient", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestRegistry(t *testing.T) {
	exec := newScriptedExecutor()
	r := NewRegistry(demoCall(t), exec, Options{ChainID: big.NewInt(1), Sponsored: true}, nil)

	assert.Equal(t, StateIdle, r.Snapshot(testAccount).State)
	_, ok := r.Lookup(testAccount)
	assert.False(t, ok)

	s := r.Get(testAccount)
	assert.Same(t, s, r.Get(testAccount))
	assert.Equal(t, 0, r.InFlight())

	_, err := s.Submit(context.Background(), connected, FrameContext{})
	require.NoError(t, err)
	exec.next(t)
	assert.Equal(t, 1, r.InFlight())
	assert.Equal(t, StateSubmitting, r.Snapshot(testAccount).State)
}

func TestRegistry_PolicyDefaultsToStrict(t *testing.T) {
	exec := newScriptedExecutor()
	r := NewRegistry(demoCall(t), exec, Options{ChainID: big.NewInt(1), Sponsored: true}, nil)
	assert.Equal(t, PolicyStrict, r.Policy())

	// 与 Submitter 实际行为一致: error 后回到 idle
	s := r.Get(testAccount)
	id, err := s.Submit(context.Background(), connected, FrameContext{})
	require.NoError(t, err)
	exec.next(t)
	s.OnStatus(context.Background(), id, lifecycle.Failed(lifecycle.CodeSendFailed, "nonce too low"))
	assert.Equal(t, StateIdle, s.State())

	legacy := NewRegistry(demoCall(t), exec, Options{Policy: PolicyLegacy}, nil)
	assert.Equal(t, PolicyLegacy, legacy.Policy())
}
