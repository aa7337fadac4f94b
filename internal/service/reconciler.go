package service

import (
	"context"
	"errors"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/lifecycle"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/model"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/monitor"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/utils/lock"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const reconcileLockKey = "cron:lock:reconcile_claims"

// ReceiptReader 读取交易回执 (ethclient.Client 满足该接口)
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// StatusResolver 接收对账得到的终态
type StatusResolver interface {
	Resolve(ctx context.Context, claim model.Claim, st lifecycle.Status)
}

type ReconcilerOptions struct {
	Spec       string        // cron 表达式，例如 "@every 1m"
	StaleAfter time.Duration // pending 超过该时长才对账
	BatchSize  int
}

// Reconciler 定时检查长时间停留在 pending 或回执超时的领取记录
// 执行器等待回执超时后，交易仍可能被打包，这里补上最终结果
type Reconciler struct {
	cron     *cron.Cron
	store    ClaimStore
	receipts ReceiptReader
	resolver StatusResolver
	locker   lock.DistributedLock
	opts     ReconcilerOptions
	now      func() time.Time
	log      *zap.Logger
}

func NewReconciler(store ClaimStore, receipts ReceiptReader, resolver StatusResolver, locker lock.DistributedLock, opts ReconcilerOptions) *Reconciler {
	if opts.Spec == "" {
		opts.Spec = "@every 1m"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &Reconciler{
		cron:     cron.New(),
		store:    store,
		receipts: receipts,
		resolver: resolver,
		locker:   locker,
		opts:     opts,
		now:      time.Now,
		log:      logger.Named("reconciler"),
	}
}

func (r *Reconciler) Start() error {
	if _, err := r.cron.AddFunc(r.opts.Spec, func() { r.RunOnce(context.Background()) }); err != nil {
		return err
	}
	r.cron.Start()
	r.log.Info("Reconciler started", zap.String("spec", r.opts.Spec))
	return nil
}

// Stop 等待正在运行的任务结束
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
	r.log.Info("Reconciler stopped")
}

// RunOnce 执行一轮对账，返回得到终态的条数
func (r *Reconciler) RunOnce(ctx context.Context) int {
	if r.locker != nil {
		// 防止多实例同时执行
		locked, err := r.locker.Acquire(ctx, reconcileLockKey, 30*time.Second)
		if err != nil || !locked {
			r.log.Debug("获取对账锁失败或已有实例在运行", zap.Error(err))
			return 0
		}
		defer r.locker.Release(ctx, reconcileLockKey)
	}

	claims, err := r.store.ListStalePending(ctx, r.now().Add(-r.opts.StaleAfter), r.opts.BatchSize)
	if err != nil {
		r.log.Error("查询待对账记录失败", zap.Error(err))
		return 0
	}

	resolved := 0
	for _, c := range claims {
		receipt, err := r.receipts.TransactionReceipt(ctx, common.HexToHash(c.TxHash))
		if errors.Is(err, ethereum.NotFound) {
			r.log.Debug("交易仍未打包", zap.String("request_id", c.RequestID), zap.String("tx_hash", c.TxHash))
			continue
		}
		if err != nil {
			r.log.Warn("读取回执失败", zap.String("tx_hash", c.TxHash), zap.Error(err))
			continue
		}

		st := lifecycle.FromReceipt(receipt)
		r.resolver.Resolve(ctx, c, st)
		monitor.Business.IncReconciled(string(st.Phase()))
		r.log.Info("对账完成",
			zap.String("request_id", c.RequestID),
			zap.String("tx_hash", c.TxHash),
			zap.String("phase", string(st.Phase())))
		resolved++
	}
	return resolved
}
