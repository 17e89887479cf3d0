package collector

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sagan-monitoring/sagan/pkg/message"
)

// maxBodySize caps the POST /collector request body.
const maxBodySize = 128 * 1024

type (
	// Router is the collector HTTP surface: POST /collector for agent
	// envelopes, GET /net/{id} for network state snapshots.
	Router struct {
		*http.Server
		svc *Service
		log *zap.Logger
	}

	// resultWrapper is the error-in-body response convention used by
	// GET /net/{id}.
	resultWrapper struct {
		Result interface{} `json:"result"`
		Error  *apiError   `json:"error"`
	}

	apiError struct {
		Message string `json:"message"`
	}
)

// NewRouter creates the HTTP router bound to the given address.
func NewRouter(addr string, svc *Service, log *zap.Logger) *Router {
	r := &Router{svc: svc, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/collector", r.handleCollector)
	mux.HandleFunc("/net/", r.handleNetworkState)
	r.Server = &http.Server{Addr: addr, Handler: mux}
	return r
}

// Serve runs the HTTP server until the context is cancelled.
func (r *Router) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		r.log.Info("collector listening", zap.String("addr", r.Addr))
		errCh <- r.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		r.log.Info("shutting down collector HTTP server")
		if err := r.Shutdown(context.Background()); err != nil {
			r.log.Error("can't shut down HTTP server", zap.Error(err))
		}
		return ctx.Err()
	}
}

// handleCollector accepts an envelope from an agent.
func (r *Router) handleCollector(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodySize))
	if err != nil {
		envelopesRejected.Inc()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "can't read request body", http.StatusBadRequest)
		return
	}

	var env message.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		envelopesRejected.Inc()
		r.log.Debug("rejecting malformed envelope", zap.Error(err))
		http.Error(w, "malformed envelope", http.StatusBadRequest)
		return
	}

	if err := r.svc.HandleMessage(req.Context(), &env); err != nil {
		envelopesRejected.Inc()
		http.Error(w, "collector unavailable", http.StatusServiceUnavailable)
		return
	}
	envelopesReceived.Inc()
	w.WriteHeader(http.StatusOK)
}

// handleNetworkState serves a network state snapshot. Unknown networks
// get an error in the response body with HTTP 200.
func (r *Router) handleNetworkState(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(req.URL.Path, "/net/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, r.log, resultWrapper{Error: &apiError{Message: "bad network ID"}})
		return
	}

	snap, err := r.svc.NetworkState(req.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUnknownNetwork) {
			writeJSON(w, r.log, resultWrapper{Error: &apiError{Message: err.Error()}})
			return
		}
		http.Error(w, "collector unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, r.log, resultWrapper{Result: snap})
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("can't write response", zap.Error(err))
	}
}
