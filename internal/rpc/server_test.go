package rpc

import (
	"context"
	"net"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/MikeMC777/store-api/internal/order"
	"github.com/MikeMC777/store-api/internal/order/ordertest"
)

const buyer = "0b7e6a52-3c1d-4e8f-9a2b-5d4c3b2a1f00"

func startServer(t *testing.T) (*grpc.ClientConn, *ordertest.MemStore) {
	t.Helper()
	st := ordertest.NewMemStore()
	mgr := order.NewManager(st, zap.NewNop(), nil)

	lis := bufconn.Listen(1 << 20)
	srv, _ := NewGRPCServer(mgr, zap.NewNop())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, st
}

func asUser(uid string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), UserMetadataKey, uid)
}

func TestPlaceAndCancelOverGRPC(t *testing.T) {
	conn, st := startServer(t)
	st.AddProduct("A", "Lamp", "10.00", 5)
	st.AddToCart(buyer, "A", 2)
	c := NewClient(conn)

	out, err := c.PlaceOrder(asUser(buyer), &structpb.Struct{})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	m := out.AsMap()
	if m["total"] != "20.00" || m["status"] != "PENDING" {
		t.Fatalf("order=%v", m)
	}
	if items, _ := m["items"].([]any); len(items) != 1 {
		t.Fatalf("items=%v", m["items"])
	}

	in, _ := structpb.NewStruct(map[string]any{"order_id": m["id"]})
	conf, err := c.CancelOrder(asUser(buyer), in)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if conf.AsMap()["status"] != "CANCELLED" || st.Stock("A") != 5 {
		t.Fatalf("conf=%v stock=%d", conf.AsMap(), st.Stock("A"))
	}
}

func TestErrorCodes(t *testing.T) {
	conn, st := startServer(t)
	st.AddProduct("A", "Lamp", "10.00", 1)
	c := NewClient(conn)

	if _, err := c.PlaceOrder(context.Background(), &structpb.Struct{}); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("no user: %v", err)
	}
	if _, err := c.PlaceOrder(asUser("not-a-uuid"), &structpb.Struct{}); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("malformed user: %v", err)
	}
	if _, err := c.PlaceOrder(asUser(buyer), &structpb.Struct{}); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("empty cart: %v", err)
	}

	st.AddToCart(buyer, "A", 3)
	_, err := c.PlaceOrder(asUser(buyer), &structpb.Struct{})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("short stock: %v", err)
	}
	details := status.Convert(err).Details()
	if len(details) != 1 {
		t.Fatalf("details=%v", details)
	}
	if d, ok := details[0].(*structpb.Struct); !ok || len(d.AsMap()["lines"].([]any)) != 1 {
		t.Fatalf("detail=%v", details[0])
	}

	if _, err := c.CancelOrder(asUser(buyer), &structpb.Struct{}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("missing id: %v", err)
	}
	in, _ := structpb.NewStruct(map[string]any{"order_id": "6f1c2d7e-4b1a-4f7c-9a3e-2f5d8c9b0a11"})
	if _, err := c.CancelOrder(asUser(buyer), in); status.Code(err) != codes.NotFound {
		t.Fatalf("unknown order: %v", err)
	}

	st.FailOn("CartLines")
	if _, err := c.PlaceOrder(asUser(buyer), &structpb.Struct{}); status.Code(err) != codes.Internal {
		t.Fatalf("storage: %v", err)
	}
}

func TestHealth(t *testing.T) {
	conn, _ := startServer(t)
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("health=%v err=%v", resp, err)
	}
}
