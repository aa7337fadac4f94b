package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/contract"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/lifecycle"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/model"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service/executor"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service/submission"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/errno"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/utils/lock"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddr = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"

func demoCall(t *testing.T) (contract.Call, [32]byte) {
	t.Helper()
	id, err := contract.ParseEventID(contract.DemoEventID)
	require.NoError(t, err)
	call, err := contract.MintAttendanceCall(common.HexToAddress(contract.DemoContractAddress), id)
	require.NoError(t, err)
	return call, id
}

func newClaimFixture(t *testing.T, exec executor.Executor, policy submission.Policy, locker lock.DistributedLock) (*ClaimService, *memClaimStore, *submission.Registry) {
	t.Helper()
	call, id := demoCall(t)
	store := newMemClaimStore()
	reg := submission.NewRegistry(call, exec, submission.Options{
		ChainID:   big.NewInt(contract.BaseSepoliaChainID),
		Sponsored: true,
		Policy:    policy,
	}, nil)
	svc := NewClaimService(store, reg, call, ClaimOptions{
		ChainID:   contract.BaseSepoliaChainID,
		EventID:   id,
		Sponsored: true,
		LockTTL:   time.Minute,
	}, locker)
	return svc, store, reg
}

// waitPhase 等待某次落库的 phase
func waitPhase(t *testing.T, store *memClaimStore, phase lifecycle.Phase) ClaimUpdate {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case upd := <-store.updates:
			if upd.Phase == string(phase) {
				return upd
			}
		case <-deadline:
			t.Fatalf("no update with phase %s", phase)
			return ClaimUpdate{}
		}
	}
}

func TestClaimService_SubmitSuccess(t *testing.T) {
	svc, store, reg := newClaimFixture(t, executor.NewSimulatedExecutor(0), submission.PolicyStrict, nil)

	snap, err := svc.Submit(context.Background(), testAddr, true, 7)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.RequestID)

	upd := waitPhase(t, store, lifecycle.PhaseSuccess)
	assert.Equal(t, string(lifecycle.StatusSuccess), upd.Status)
	assert.NotNil(t, upd.SettledAt)

	claim, err := store.GetByRequestID(context.Background(), snap.RequestID)
	require.NoError(t, err)
	assert.Equal(t, testAddr, claim.Address)
	assert.Equal(t, contract.DemoEventID, claim.EventID)
	assert.Equal(t, int64(contract.BaseSepoliaChainID), claim.ChainID)
	assert.Equal(t, uint64(7), claim.FID)
	assert.Equal(t, "success", claim.Phase)
	assert.NotEmpty(t, claim.TxHash)
	assert.NotEmpty(t, claim.ClaimKey)

	store.mu.Lock()
	require.Len(t, store.minted, 1)
	assert.Equal(t, claim.TxHash, store.minted[0].TxHash)
	assert.Equal(t, testAddr, store.minted[0].Address)
	store.mu.Unlock()

	assert.Equal(t, submission.StateIdle, reg.Snapshot(common.HexToAddress(testAddr)).State)

	history, err := svc.History(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestClaimService_StrictFailure(t *testing.T) {
	exec := &executor.SimulatedExecutor{FailCode: lifecycle.CodeReverted}
	svc, store, _ := newClaimFixture(t, exec, submission.PolicyStrict, nil)

	snap, err := svc.Submit(context.Background(), testAddr, true, 0)
	require.NoError(t, err)

	upd := waitPhase(t, store, lifecycle.PhaseError)
	assert.Equal(t, lifecycle.CodeReverted, upd.ErrorCode)

	claim, err := store.GetByRequestID(context.Background(), snap.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "error", claim.Phase)
	assert.Empty(t, store.minted)

	state, err := svc.State(testAddr)
	require.NoError(t, err)
	assert.Equal(t, submission.StateIdle, state.State)
	require.NotNil(t, state.LastError)
	assert.Equal(t, lifecycle.CodeReverted, state.LastError.Code)
}

func TestClaimService_LegacyFailureStaysSubmitting(t *testing.T) {
	exec := &executor.SimulatedExecutor{FailCode: lifecycle.CodeReverted}
	svc, store, _ := newClaimFixture(t, exec, submission.PolicyLegacy, nil)

	_, err := svc.Submit(context.Background(), testAddr, true, 0)
	require.NoError(t, err)
	waitPhase(t, store, lifecycle.PhaseError)

	state, err := svc.State(testAddr)
	require.NoError(t, err)
	assert.Equal(t, submission.StateSubmitting, state.State)

	_, err = svc.Submit(context.Background(), testAddr, true, 0)
	assert.ErrorIs(t, err, errno.ErrSubmissionInFlight)
}

func TestClaimService_Rejections(t *testing.T) {
	svc, store, _ := newClaimFixture(t, executor.NewSimulatedExecutor(0), submission.PolicyStrict, nil)

	_, err := svc.Submit(context.Background(), "not-an-address", true, 0)
	assert.ErrorIs(t, err, errno.ErrInvalidAddress)

	snap, err := svc.Submit(context.Background(), testAddr, false, 0)
	assert.ErrorIs(t, err, errno.ErrWalletNotConnected)
	assert.Equal(t, submission.StateIdle, snap.State)

	_, err = svc.State("0x123")
	assert.ErrorIs(t, err, errno.ErrInvalidAddress)

	assert.Empty(t, store.claims)
}

func TestClaimService_StoreFailureRollsBack(t *testing.T) {
	locker := lock.NewLocalLock()
	svc, store, _ := newClaimFixture(t, executor.NewSimulatedExecutor(0), submission.PolicyStrict, locker)
	store.failOn = "connection refused"

	_, err := svc.Submit(context.Background(), testAddr, true, 0)
	assert.ErrorIs(t, err, errno.ErrDatabase)

	state, err := svc.State(testAddr)
	require.NoError(t, err)
	assert.Equal(t, submission.StateIdle, state.State)

	// 锁已释放
	ok, err := locker.Acquire(context.Background(), lockKey(common.HexToAddress(testAddr)), time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClaimService_LockAcrossInstances(t *testing.T) {
	locker := lock.NewLocalLock()
	slow := executor.NewSimulatedExecutor(time.Hour)
	a, _, _ := newClaimFixture(t, slow, submission.PolicyStrict, locker)
	b, _, _ := newClaimFixture(t, slow, submission.PolicyStrict, locker)

	_, err := a.Submit(context.Background(), testAddr, true, 0)
	require.NoError(t, err)

	_, err = b.Submit(context.Background(), testAddr, true, 0)
	assert.ErrorIs(t, err, errno.ErrClaimLocked)
}

func TestClaimService_LockReleasedOnSuccess(t *testing.T) {
	locker := lock.NewLocalLock()
	svc, store, _ := newClaimFixture(t, executor.NewSimulatedExecutor(0), submission.PolicyStrict, locker)

	_, err := svc.Submit(context.Background(), testAddr, true, 0)
	require.NoError(t, err)
	waitPhase(t, store, lifecycle.PhaseSuccess)

	assert.Eventually(t, func() bool {
		ok, _ := locker.Acquire(context.Background(), lockKey(common.HexToAddress(testAddr)), time.Second)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClaimService_Descriptor(t *testing.T) {
	svc, _, _ := newClaimFixture(t, executor.NewSimulatedExecutor(0), submission.PolicyStrict, nil)

	info, err := svc.Descriptor()
	require.NoError(t, err)
	assert.Equal(t, int64(contract.BaseSepoliaChainID), info.ChainID)
	assert.True(t, info.Sponsored)
	assert.Equal(t, "mintAttendance", info.FunctionName)
	assert.Equal(t, "mintAttendance(bytes32,bytes)", info.Signature)
	assert.Equal(t, []string{contract.DemoEventID, "0x"}, info.Args)
	assert.Equal(t, common.HexToAddress(contract.DemoContractAddress).Hex(), info.Address)
}

func TestClaimService_ResolveOrphan(t *testing.T) {
	svc, store, _ := newClaimFixture(t, executor.NewSimulatedExecutor(0), submission.PolicyStrict, nil)
	store.put(model.Claim{
		RequestID: "req-1",
		Address:   testAddr,
		Status:    string(lifecycle.StatusTransactionPending),
		Phase:     string(lifecycle.PhasePending),
		TxHash:    "0xfeed",
	})

	svc.Resolve(context.Background(), model.Claim{RequestID: "req-1", Address: testAddr}, lifecycle.Status{
		Name: lifecycle.StatusSuccess,
		Data: lifecycle.Data{TxHashes: []string{"0xfeed"}, BlockNumber: 99},
	})

	claim, err := store.GetByRequestID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, "success", claim.Phase)
	assert.Equal(t, uint64(99), claim.BlockNumber)
	assert.NotNil(t, claim.SettledAt)
	require.Len(t, store.minted, 1)
	assert.Equal(t, "req-1", store.minted[0].RequestID)
}

// receiptTimeoutExecutor 发出交易后等不到回执
type receiptTimeoutExecutor struct {
	hash string
}

func (e receiptTimeoutExecutor) Execute(_ context.Context, _ executor.Request, statuses chan<- lifecycle.Status) {
	defer close(statuses)
	statuses <- lifecycle.Building()
	statuses <- lifecycle.Pending(e.hash)
	failed := lifecycle.Failed(lifecycle.CodeReceiptTimeout, "wait receipt: context deadline exceeded")
	failed.Data.TxHashes = []string{e.hash}
	statuses <- failed
}

func TestClaimService_ReconcileAfterReceiptTimeout(t *testing.T) {
	tests := []struct {
		name   string
		policy submission.Policy
	}{
		{"strict", submission.PolicyStrict},
		{"legacy", submission.PolicyLegacy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash := common.HexToHash("0xabc")
			svc, store, reg := newClaimFixture(t, receiptTimeoutExecutor{hash: hash.Hex()}, tt.policy, nil)

			snap, err := svc.Submit(context.Background(), testAddr, true, 0)
			require.NoError(t, err)
			waitPhase(t, store, lifecycle.PhaseError)

			claim, err := store.GetByRequestID(context.Background(), snap.RequestID)
			require.NoError(t, err)
			require.Equal(t, lifecycle.CodeReceiptTimeout, claim.ErrorCode)
			require.Equal(t, hash.Hex(), claim.TxHash)
			store.age(snap.RequestID, time.Hour)

			receipts := &fakeReceipts{receipts: map[common.Hash]*types.Receipt{
				hash: {Status: types.ReceiptStatusSuccessful, TxHash: hash, BlockNumber: big.NewInt(42)},
			}}
			r := NewReconciler(store, receipts, svc, lock.NewLocalLock(), ReconcilerOptions{StaleAfter: 5 * time.Minute})
			assert.Equal(t, 1, r.RunOnce(context.Background()))

			claim, err = store.GetByRequestID(context.Background(), snap.RequestID)
			require.NoError(t, err)
			assert.Equal(t, string(lifecycle.PhaseSuccess), claim.Phase)
			assert.Empty(t, claim.ErrorCode)
			assert.Equal(t, uint64(42), claim.BlockNumber)
			require.Len(t, store.minted, 1)
			assert.Equal(t, hash.Hex(), store.minted[0].TxHash)
			assert.Equal(t, submission.StateIdle, reg.Snapshot(common.HexToAddress(testAddr)).State)

			// 已结算的记录不再进入对账
			assert.Equal(t, 0, r.RunOnce(context.Background()))
		})
	}
}

func TestClaimService_Status(t *testing.T) {
	exec := &blockingExecutor{release: make(chan struct{})}
	defer close(exec.release)
	svc, _, _ := newClaimFixture(t, exec, "", nil)

	st := svc.Status()
	assert.Equal(t, int64(contract.BaseSepoliaChainID), st.ChainID)
	assert.True(t, st.Sponsored)
	assert.Equal(t, submission.PolicyStrict, st.Policy)
	assert.Equal(t, 0, st.InFlight)

	_, err := svc.Submit(context.Background(), testAddr, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Status().InFlight)
}

// blockingExecutor 在 release 关闭前不上报任何状态
type blockingExecutor struct {
	release chan struct{}
}

func (e *blockingExecutor) Execute(_ context.Context, _ executor.Request, statuses chan<- lifecycle.Status) {
	<-e.release
	close(statuses)
}
