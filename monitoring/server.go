package monitoring

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/neurlang/editgen/logger"
)

// Service is the gRPC health service name reported for the trainer.
const Service = "editgen.Trainer"

// HealthStatus is the body of the /healthz endpoint.
type HealthStatus struct {
	Status    string        `json:"status"`
	State     string        `json:"state"`
	Step      int           `json:"step"`
	Uptime    time.Duration `json:"uptime"`
	GoVersion string        `json:"go_version"`
	CPU       string        `json:"cpu"`
	Cores     int           `json:"cores"`
}

// Server owns the optional HTTP and gRPC listeners.
type Server struct {
	mu      sync.RWMutex
	started time.Time
	serving bool
	state   string
	step    int

	httpLis net.Listener
	httpSrv *http.Server
	grpcLis net.Listener
	grpcSrv *grpc.Server
	health  *health.Server
}

// Start listens on the given addresses. An empty address disables that
// listener; with both empty Start returns an inert Server.
func Start(httpAddr, grpcAddr string) (*Server, error) {
	s := &Server{started: time.Now(), health: health.NewServer()}

	if httpAddr != "" {
		lis, err := net.Listen("tcp", httpAddr)
		if err != nil {
			return nil, errors.Wrap(err, "metrics listener")
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", s.handleHealth)
		s.httpLis = lis
		s.httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := s.httpSrv.Serve(lis); err != nil && err != http.ErrServerClosed {
				logger.Log.Error("metrics server", "err", err)
			}
		}()
		logger.Log.Info("metrics server listening", "addr", lis.Addr().String())
	}

	if grpcAddr != "" {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			s.Shutdown(context.Background())
			return nil, errors.Wrap(err, "health listener")
		}
		s.grpcLis = lis
		s.grpcSrv = grpc.NewServer()
		healthpb.RegisterHealthServer(s.grpcSrv, s.health)
		go func() {
			if err := s.grpcSrv.Serve(lis); err != nil {
				logger.Log.Error("health server", "err", err)
			}
		}()
		logger.Log.Info("health server listening", "addr", lis.Addr().String())
	}
	s.SetServing(false)
	return s, nil
}

// HTTPAddr returns the bound HTTP address or "".
func (s *Server) HTTPAddr() string {
	if s.httpLis == nil {
		return ""
	}
	return s.httpLis.Addr().String()
}

// GRPCAddr returns the bound gRPC address or "".
func (s *Server) GRPCAddr() string {
	if s.grpcLis == nil {
		return ""
	}
	return s.grpcLis.Addr().String()
}

// SetServing flips both health endpoints between serving and not serving.
func (s *Server) SetServing(serving bool) {
	s.mu.Lock()
	s.serving = serving
	s.mu.Unlock()
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(Service, status)
}

// Observe records the current loop state and step for /healthz.
func (s *Server) Observe(state string, step int) {
	s.mu.Lock()
	s.state, s.step = state, step
	s.mu.Unlock()
}

// Status returns the current health snapshot.
func (s *Server) Status() HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := "not_serving"
	if s.serving {
		status = "serving"
	}
	return HealthStatus{
		Status:    status,
		State:     s.state,
		Step:      s.step,
		Uptime:    time.Since(s.started),
		GoVersion: runtime.Version(),
		CPU:       cpuid.CPU.BrandName,
		Cores:     cpuid.CPU.LogicalCores,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.Status()
	w.Header().Set("Content-Type", "application/json")
	if st.Status != "serving" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(st)
}

// Shutdown stops both listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()
	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	if s.grpcSrv != nil {
		s.grpcSrv.GracefulStop()
	}
	return err
}
