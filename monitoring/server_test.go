package monitoring

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/neurlang/editgen/metrics"
)

func TestInertServer(t *testing.T) {
	s, err := Start("", "")
	require.NoError(t, err)
	assert.Empty(t, s.HTTPAddr())
	assert.Empty(t, s.GRPCAddr())
	s.SetServing(true)
	assert.Equal(t, "serving", s.Status().Status)
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestHTTPEndpoints(t *testing.T) {
	s, err := Start("127.0.0.1:0", "")
	require.NoError(t, err)
	defer s.Shutdown(context.Background())

	resp, err := http.Get("http://" + s.HTTPAddr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	s.SetServing(true)
	s.Observe("stepping", 12)
	resp, err = http.Get("http://" + s.HTTPAddr() + "/healthz")
	require.NoError(t, err)
	var st HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "stepping", st.State)
	assert.Equal(t, 12, st.Step)

	metrics.RecordSchedule(0.5, 2)
	resp, err = http.Get("http://" + s.HTTPAddr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "editgen_learning_rate 0.5")
}

func TestGRPCHealth(t *testing.T) {
	s, err := Start("", "127.0.0.1:0")
	require.NoError(t, err)
	defer s.Shutdown(context.Background())

	conn, err := grpc.NewClient(s.GRPCAddr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: Service})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	s.SetServing(true)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: Service})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
