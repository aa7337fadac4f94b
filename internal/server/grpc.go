package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ClaimServiceName gRPC 健康检查中使用的服务名
const ClaimServiceName = "poa.v1.ClaimService"

// NewGRPCServer 初始化 gRPC 服务 (健康检查 + 反射)
func NewGRPCServer() (*grpc.Server, *health.Server) {
	s := grpc.NewServer()

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ClaimServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	reflection.Register(s)
	return s, hs
}
