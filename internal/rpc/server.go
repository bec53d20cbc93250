// Package rpc exposes the order entry points over gRPC for internal callers.
package rpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/MikeMC777/store-api/internal/order"
)

// UserMetadataKey carries the caller's user id.
const UserMetadataKey = "x-user-id"

type Orders interface {
	PlaceOrder(ctx context.Context, userID string) (*order.Order, error)
	CancelOrder(ctx context.Context, userID, orderID string) (*order.Confirmation, error)
}

type Server struct {
	orders Orders
}

func NewServer(orders Orders) *Server { return &Server{orders: orders} }

func (s *Server) PlaceOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	uid, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	o, err := s.orders.PlaceOrder(ctx, uid)
	if err != nil {
		return nil, mapErr(err)
	}
	return structpb.NewStruct(orderToMap(o))
}

func (s *Server) CancelOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	uid, err := userFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(in.GetFields()["order_id"].GetStringValue())
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	conf, err := s.orders.CancelOrder(ctx, uid, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return structpb.NewStruct(map[string]any{
		"order_id": conf.OrderID,
		"status":   string(conf.Status),
	})
}

// NewGRPCServer registers the order service and the standard health service.
func NewGRPCServer(orders Orders, log *zap.Logger) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary(log)))
	RegisterOrderServiceServer(srv, NewServer(orders))

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

func userFromContext(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	for _, v := range md.Get(UserMetadataKey) {
		if v = strings.TrimSpace(v); v == "" {
			continue
		}
		if _, err := uuid.Parse(v); err != nil {
			return "", status.Error(codes.Unauthenticated, "malformed "+UserMetadataKey+" metadata")
		}
		return v, nil
	}
	return "", status.Error(codes.Unauthenticated, "missing "+UserMetadataKey+" metadata")
}

func mapErr(err error) error {
	var (
		stock *order.InsufficientStockError
		state *order.InvalidStateError
	)
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &stock):
		return stockStatus(stock)
	case errors.As(err, &state):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, order.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}

// stockStatus attaches the per-line shortages as a Struct detail.
func stockStatus(e *order.InsufficientStockError) error {
	st := status.New(codes.FailedPrecondition, e.Error())
	lines := make([]any, 0, len(e.Lines))
	for _, l := range e.Lines {
		lines = append(lines, map[string]any{
			"product_id":   l.ProductID,
			"product_name": l.ProductName,
			"available":    l.Available,
			"required":     l.Required,
		})
	}
	detail, err := structpb.NewStruct(map[string]any{"lines": lines})
	if err != nil {
		return st.Err()
	}
	if withDetail, err := st.WithDetails(detail); err == nil {
		return withDetail.Err()
	}
	return st.Err()
}

func orderToMap(o *order.Order) map[string]any {
	items := make([]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"product_id":   it.ProductID,
			"product_name": it.ProductName,
			"quantity":     it.Quantity,
			"price":        it.Price.StringFixed(2),
		})
	}
	return map[string]any{
		"id":         o.ID,
		"user_id":    o.UserID,
		"status":     string(o.Status),
		"total":      o.Total.StringFixed(2),
		"items":      items,
		"created_at": o.CreatedAt.Format(time.RFC3339),
	}
}

func logUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("dur", time.Since(start)),
		}
		if code == codes.Internal {
			log.Error("grpc", fields...)
		} else {
			log.Info("grpc", fields...)
		}
		return resp, err
	}
}
