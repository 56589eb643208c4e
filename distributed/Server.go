package distributed

import (
	"encoding/binary"
	"encoding/json"
	"io/ioutil"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Routes served by a coordinator Server
const (
	healthRoute     = "/v1/health"
	collectiveRoute = "/v1/collective/{rank}/{seq}"
	abortRoute      = "/v1/abort/{rank}"
)

// Health is the body returned by the health endpoint of a Server
type Health struct {
	Workers int    `json:"workers"`
	Aborted bool   `json:"aborted"`
	Cause   string `json:"cause,omitempty"`
}

// Server exposes a Group to remote workers over HTTP. Each collective
// is a POST of the worker's little-endian float64 vector; the response
// carries the reduced vector.
type Server struct {
	group  *Group
	router *mux.Router
	logger *zap.Logger
}

// NewServer returns a new coordinator Server for n remote workers
func NewServer(n int, timeout time.Duration, logger *zap.Logger) (*Server,
	error) {
	group, err := NewGroup(n, timeout)
	if err != nil {
		return nil, errors.Wrap(err, "newServer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{group: group, router: mux.NewRouter(), logger: logger}
	s.router.HandleFunc(healthRoute, s.handleHealth).Methods("GET")
	s.router.HandleFunc(collectiveRoute, s.handleCollective).Methods("POST")
	s.router.HandleFunc(abortRoute, s.handleAbort).Methods("POST")

	return s, nil
}

// Group returns the Group served by the Server
func (s *Server) Group() *Group {
	return s.group
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := Health{Workers: s.group.NumWorkers()}
	if err := s.group.Err(); err != nil {
		health.Aborted = true
		health.Cause = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Error("unable to write health", zap.Error(err))
	}
}

func (s *Server) handleCollective(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rank, err := strconv.Atoi(vars["rank"])
	if err != nil {
		http.Error(w, "invalid rank", http.StatusBadRequest)
		return
	}
	seq, err := strconv.ParseUint(vars["seq"], 10, 64)
	if err != nil {
		http.Error(w, "invalid sequence number", http.StatusBadRequest)
		return
	}
	op := Op(r.URL.Query().Get("op"))

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "unable to read body", http.StatusBadRequest)
		return
	}
	data, err := decodeVector(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reduced, err := s.group.Reduce(r.Context(), rank, seq, op, data)
	if err != nil {
		s.logger.Warn("collective failed", zap.Int("rank", rank),
			zap.Uint64("seq", seq), zap.String("op", string(op)),
			zap.Error(err))
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(encodeVector(reduced)); err != nil {
		s.logger.Warn("unable to write collective result",
			zap.Int("rank", rank), zap.Error(err))
	}
}

func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	rank := mux.Vars(r)["rank"]
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "unable to read body", http.StatusBadRequest)
		return
	}

	cause := errors.Errorf("worker %v: %s", rank, body)
	s.logger.Warn("worker aborted the run", zap.Error(cause))
	s.group.Abort(cause)
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps a collective error to an HTTP status code
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrDesync):
		return http.StatusConflict
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrAborted):
		return http.StatusGone
	default:
		return http.StatusBadRequest
	}
}

// errorFor maps an HTTP status code back to a collective error
func errorFor(status int, msg string) error {
	switch status {
	case http.StatusConflict:
		return errors.Wrap(ErrDesync, msg)
	case http.StatusGatewayTimeout:
		return errors.Wrap(ErrTimeout, msg)
	case http.StatusGone:
		return errors.Wrap(ErrAborted, msg)
	default:
		return errors.Errorf("coordinator returned %v: %v", status, msg)
	}
}

func encodeVector(data []float64) []byte {
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, errors.Errorf("decodeVector: body of %v bytes is not a "+
			"float64 vector", len(buf))
	}
	data := make([]float64, len(buf)/8)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return data, nil
}
