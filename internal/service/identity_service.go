package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/cache"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/errno"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BalanceReader 读取账户余额 (ethclient.Client 满足该接口)
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Identity 身份卡片需要的链上数据
type Identity struct {
	Address    string    `json:"address"`
	ChainID    int64     `json:"chain_id"`
	BalanceWei string    `json:"balance_wei"`
	BalanceETH string    `json:"balance_eth"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// IdentityService 地址与余额查询，结果走多级缓存
type IdentityService struct {
	reader  BalanceReader
	cache   cache.Cache
	chainID int64
	ttl     time.Duration
	now     func() time.Time
}

func NewIdentityService(reader BalanceReader, c cache.Cache, chainID int64, ttl time.Duration) *IdentityService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &IdentityService{reader: reader, cache: c, chainID: chainID, ttl: ttl, now: time.Now}
}

func (s *IdentityService) Lookup(ctx context.Context, address string) (*Identity, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("identity:%d:%s", s.chainID, addr.Hex())
	id, err := cache.GetOrLoad(ctx, s.cache, key, s.ttl, func(ctx context.Context) (Identity, error) {
		wei, err := s.reader.BalanceAt(ctx, addr, nil)
		if err != nil {
			logger.Error("查询余额失败", zap.String("address", addr.Hex()), zap.Error(err))
			return Identity{}, errno.ErrRPC
		}
		return Identity{
			Address:    addr.Hex(),
			ChainID:    s.chainID,
			BalanceWei: wei.String(),
			BalanceETH: WeiToEther(wei).String(),
			FetchedAt:  s.now().UTC(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// WeiToEther 1 ETH = 1e18 wei
func WeiToEther(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -18)
}
