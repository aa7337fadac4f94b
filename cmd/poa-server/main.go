package main

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/contract"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/handler"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/model"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/server"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service/executor"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service/mq"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service/submission"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/cache"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/config"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/database"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/monitor"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/signer"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/utils/lock"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/validator"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// @title POA Mini App API
// @version 1.0
// @description Proof of Attendance claim service
// @BasePath /
func main() {
	// 0. 初始化 Config
	config.Init()
	cfg := config.Global

	// 1. 初始化 Logger
	logger.Init(cfg.App.Env, logger.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer logger.Sync()

	validator.Init()
	monitor.Init()

	// 2. 合约调用描述 (整个进程内不变)
	eventID, err := contract.ParseEventID(cfg.Chain.EventID)
	if err != nil {
		logger.Fatal("event_id 配置错误", zap.Error(err))
	}
	if !common.IsHexAddress(cfg.Chain.ContractAddress) {
		logger.Fatal("contract_address 配置错误", zap.String("contract", cfg.Chain.ContractAddress))
	}
	call, err := contract.MintAttendanceCall(common.HexToAddress(cfg.Chain.ContractAddress), eventID)
	if err != nil {
		logger.Fatal("构造合约调用失败", zap.Error(err))
	}

	// 3. 连接数据库
	db, err := database.ConnectPostgres(database.PostgresDSN(cfg.DB), cfg.App.Env == "development")
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	if cfg.App.Env == "development" {
		logger.Info("开发环境: 自动迁移 Schema (GORM AutoMigrate)...")
		if err := db.AutoMigrate(model.AllModels()...); err != nil {
			logger.Fatal("数据库自动迁移失败", zap.Error(err))
		}
	} else {
		logger.Info("生产环境: 跳过 AutoMigrate，请使用 migrate 工具管理 Schema")
	}

	// 4. 连接 Redis
	rdb, err := database.ConnectRedis(context.Background(), cfg.Redis)
	if err != nil {
		logger.Fatal("Redis 连接失败", zap.Error(err))
	}

	// 5. 链上客户端 (HTTP RPC 在首次调用时才建立连接)
	client, err := ethclient.Dial(cfg.Chain.RpcUrl)
	if err != nil {
		logger.Fatal("RPC 客户端初始化失败", zap.String("rpc", cfg.Chain.RpcUrl), zap.Error(err))
	}

	// 6. 交易执行器
	exec := newExecutor(cfg, client)

	// 7. 提交状态机 + 领取服务
	policy, err := submission.ParsePolicy(cfg.Submission.Policy)
	if err != nil {
		logger.Fatal("submission.policy 配置错误", zap.Error(err))
	}
	registry := submission.NewRegistry(call, exec, submission.Options{
		ChainID:   big.NewInt(cfg.Chain.ChainID),
		Sponsored: cfg.Chain.Sponsored,
		Policy:    policy,
	}, nil)

	claimStore := service.NewGormClaimStore(db)
	locker := lock.NewRedisLock(rdb)
	claimSvc := service.NewClaimService(claimStore, registry, call, service.ClaimOptions{
		ChainID:   cfg.Chain.ChainID,
		EventID:   eventID,
		Sponsored: cfg.Chain.Sponsored,
		LockTTL:   cfg.Submission.LockTTL,
	}, locker)
	logger.Info("领取服务就绪", zap.String("policy", string(registry.Policy())), zap.Bool("sponsored", cfg.Chain.Sponsored))

	// 8. 身份与 frame
	identityCache := cache.NewMultiLevelCache(
		cache.NewMemoryCache(cfg.Identity.CacheTTL, 2*cfg.Identity.CacheTTL),
		cache.NewRedisCache(rdb, "poa:"),
	)
	identitySvc := service.NewIdentityService(client, identityCache, cfg.Chain.ChainID, cfg.Identity.CacheTTL)
	frameSvc := service.NewFrameService(service.NewGormFrameStore(db))

	// 9. 消息队列
	var producer mq.Producer
	var consumer mq.Consumer
	if cfg.Redis.MQType == "kafka" {
		logger.Info("使用 Kafka 作为消息队列...")
		producer = mq.NewKafkaProducer(cfg.Kafka.Brokers)
		consumer = mq.NewKafkaConsumer(cfg.Kafka.Brokers, "poa_claim_group")
	} else {
		logger.Info("使用 Redis Streams 作为消息队列...")
		host, _ := os.Hostname()
		producer = mq.NewRedisProducer(rdb)
		consumer = mq.NewRedisConsumer(rdb, "poa_claim", "consumer-"+host)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 10. 后台任务
	relay := service.NewRelayService(service.NewGormOutboxStore(db), producer)
	go relay.Start(ctx)

	claimConsumer := service.NewClaimEventConsumer(consumer, cache.NewRedisCache(rdb, "poa:consumed:"))
	go func() {
		if err := claimConsumer.Start(ctx); err != nil {
			logger.Error("领取事件消费者退出", zap.Error(err))
		}
	}()

	reconciler := service.NewReconciler(claimStore, client, claimSvc, locker, service.ReconcilerOptions{
		Spec:       cfg.Reconciler.Spec,
		StaleAfter: cfg.Reconciler.StaleAfter,
		BatchSize:  cfg.Reconciler.BatchSize,
	})
	if err := reconciler.Start(); err != nil {
		logger.Fatal("Reconciler 启动失败", zap.Error(err))
	}

	// 11. HTTP + gRPC
	r := server.NewHTTPRouter(server.Handlers{
		Health:   handler.NewHealthHandler(executorMode(exec), claimSvc),
		Claim:    handler.NewClaimHandler(claimSvc),
		Identity: handler.NewIdentityHandler(identitySvc),
		Frame:    handler.NewFrameHandler(frameSvc),
	})
	grpcServer, healthServer := server.NewGRPCServer()

	app, err := server.New(server.Config{
		HttpPort: cfg.App.HttpPort,
		GrpcPort: cfg.App.GrpcPort,
	}, r, grpcServer, healthServer)
	if err != nil {
		logger.Fatal("应用启动失败", zap.Error(err))
	}

	// 运行 (阻塞)
	app.Run(ctx)

	// 12. 退出后资源清理
	reconciler.Stop()
	_ = claimConsumer.Close()
	_ = producer.Close()
	client.Close()

	logger.Info("正在关闭数据库连接...")
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	rdb.Close()
	logger.Info("系统已退出")
}

func executorMode(exec executor.Executor) string {
	if _, ok := exec.(*executor.SimulatedExecutor); ok {
		return "simulated"
	}
	return "relayer"
}

// newExecutor chain.simulate 或开发环境下 relayer 不可用时使用模拟执行器
func newExecutor(cfg config.Config, client *ethclient.Client) executor.Executor {
	if cfg.Chain.Simulate {
		logger.Warn("chain.simulate 已开启: 交易不会上链")
		return executor.NewSimulatedExecutor(2 * time.Second)
	}

	relayer, err := signer.Load(cfg.Relayer)
	if err != nil {
		if cfg.App.Env == "development" {
			logger.Warn("relayer 未配置，开发环境降级为模拟执行器", zap.Error(err))
			return executor.NewSimulatedExecutor(2 * time.Second)
		}
		logger.Fatal("加载 relayer 失败", zap.Error(err))
	}
	logger.Info("relayer 已加载", zap.String("address", relayer.Address().Hex()))

	return executor.NewEthExecutor(client, relayer, cfg.Chain.PollInterval, cfg.Chain.ReceiptTimeout)
}
