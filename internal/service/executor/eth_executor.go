package executor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/lifecycle"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Backend EthExecutor 需要的链上能力，*ethclient.Client 满足该接口
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// TxSigner relayer 签名能力
type TxSigner interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// EthExecutor 由 relayer 账户代付 Gas 发送交易 (paymaster 角色)，并轮询回执
type EthExecutor struct {
	backend Backend
	signer  TxSigner

	pollInterval   time.Duration
	receiptTimeout time.Duration

	// 串行化 relayer nonce 分配
	mu        sync.Mutex
	nextNonce *uint64
}

func NewEthExecutor(backend Backend, signer TxSigner, pollInterval, receiptTimeout time.Duration) *EthExecutor {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if receiptTimeout <= 0 {
		receiptTimeout = 2 * time.Minute
	}
	return &EthExecutor{
		backend:        backend,
		signer:         signer,
		pollInterval:   pollInterval,
		receiptTimeout: receiptTimeout,
	}
}

func (e *EthExecutor) Execute(ctx context.Context, req Request, statuses chan<- lifecycle.Status) {
	defer close(statuses)
	log := logger.Named("executor").With(zap.String("request_id", req.ID), zap.String("from", req.From.Hex()))

	if !req.Sponsored {
		// 服务端没有用户私钥，非代付交易只能由用户钱包自己签名
		emit(ctx, statuses, lifecycle.Failed(lifecycle.CodeSponsorshipRequired, "non-sponsored calls must be signed by the user's wallet"))
		return
	}
	if len(req.Calls) == 0 {
		emit(ctx, statuses, lifecycle.Failed(lifecycle.CodeBuildFailed, "no calls in request"))
		return
	}

	if !emit(ctx, statuses, lifecycle.Building()) {
		return
	}

	hashes := make([]common.Hash, 0, len(req.Calls))
	for i, call := range req.Calls {
		data, err := call.EncodeInput()
		if err != nil {
			emit(ctx, statuses, lifecycle.Failed(lifecycle.CodeBuildFailed, err.Error()))
			return
		}

		tx, err := e.send(ctx, req.ChainID, call.To(), data)
		if err != nil {
			log.Error("发送交易失败", zap.Int("call", i), zap.Error(err))
			code := lifecycle.CodeSendFailed
			if errors.Is(err, errBuild) {
				code = lifecycle.CodeBuildFailed
			}
			emit(ctx, statuses, lifecycle.Failed(code, err.Error()))
			return
		}
		hashes = append(hashes, tx.Hash())
		log.Info("交易已广播", zap.String("tx_hash", tx.Hash().Hex()), zap.Uint64("nonce", tx.Nonce()))
	}

	pending := lifecycle.Status{Name: lifecycle.StatusTransactionPending}
	for _, h := range hashes {
		pending.Data.TxHashes = append(pending.Data.TxHashes, h.Hex())
	}
	if !emit(ctx, statuses, pending) {
		return
	}

	var last lifecycle.Status
	for _, h := range hashes {
		receipt, err := e.waitReceipt(ctx, h)
		if err != nil {
			code := lifecycle.CodeReceiptTimeout
			if errors.Is(err, context.Canceled) {
				code = lifecycle.CodeCanceled
			}
			failed := lifecycle.Failed(code, err.Error())
			failed.Data.TxHashes = pending.Data.TxHashes
			emit(ctx, statuses, failed)
			return
		}
		last = lifecycle.FromReceipt(receipt)
		if last.Phase() == lifecycle.PhaseError {
			break
		}
	}
	last.Data.TxHashes = pending.Data.TxHashes
	emit(ctx, statuses, last)
}

var errBuild = errors.New("build transaction")

// send 构造 EIP-1559 交易、签名并广播
func (e *EthExecutor) send(ctx context.Context, chainID *big.Int, to common.Address, data []byte) (*types.Transaction, error) {
	from := e.signer.Address()

	gas, err := e.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%w: estimate gas: %v", errBuild, err)
	}
	gas = gas * 12 / 10 // 预留 20%

	tip, err := e.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: suggest tip: %v", errBuild, err)
	}
	head, err := e.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: latest header: %v", errBuild, err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	nonce, err := e.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("%w: pending nonce: %v", errBuild, err)
	}
	if e.nextNonce != nil && *e.nextNonce > nonce {
		nonce = *e.nextNonce
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Data:      data,
	})
	signed, err := e.signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("%w: sign: %v", errBuild, err)
	}

	if err := e.backend.SendTransaction(ctx, signed); err != nil {
		// 下次重新从链上取 nonce
		e.nextNonce = nil
		return nil, fmt.Errorf("send: %w", err)
	}
	next := nonce + 1
	e.nextNonce = &next
	return signed, nil
}

// waitReceipt 轮询回执直到上链、超时或 ctx 取消
func (e *EthExecutor) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, e.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			logger.Debug("查询回执失败，稍后重试", zap.String("tx_hash", hash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait receipt %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
