package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

type Config struct {
	HttpPort string
	GrpcPort string
}

type App struct {
	httpServer   *http.Server
	grpcServer   *grpc.Server
	grpcListener net.Listener
	health       *health.Server
}

func New(cfg Config, httpHandler *gin.Engine, grpcServer *grpc.Server, hs *health.Server) (*App, error) {
	httpSrv := &http.Server{
		Addr:              ":" + cfg.HttpPort,
		Handler:           httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GrpcPort)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on grpc port %s: %w", cfg.GrpcPort, err)
	}

	return &App{
		httpServer:   httpSrv,
		grpcServer:   grpcServer,
		grpcListener: lis,
		health:       hs,
	}, nil
}

// Run 启动服务并阻塞，直到 ctx 取消 (通常由 signal.NotifyContext 触发)
func (a *App) Run(ctx context.Context) {
	go func() {
		logger.Info("Starting HTTP Server", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Server failure", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("Starting gRPC Server", zap.String("addr", a.grpcListener.Addr().String()))
		if err := a.grpcServer.Serve(a.grpcListener); err != nil {
			logger.Fatal("gRPC Server failure", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	// 先让健康检查失败，负载均衡摘流
	if a.health != nil {
		a.health.Shutdown()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	a.grpcServer.GracefulStop()
	logger.Info("Server exited properly")
}
