package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sync"

	"go.ngs.io/currents-api/internal/domain"
)

// ExecSmoother drives an external smoothing process over line-delimited JSON
// on stdin/stdout. The process is started on first use and kept alive for
// the lifetime of the smoother, mirroring an engine session that is
// expensive to boot.
type ExecSmoother struct {
	path string
	args []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	enc    *json.Encoder
	dec    *json.Decoder
	failed bool
}

// NewExecSmoother creates a smoother running the given command.
func NewExecSmoother(path string, args ...string) *ExecSmoother {
	return &ExecSmoother{path: path, args: args}
}

// nullableFloat marshals NaN as JSON null and back. JSON has no NaN literal,
// and unfilled cells must survive the trip to the engine.
type nullableFloat float64

func (f nullableFloat) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

func (f *nullableFloat) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = nullableFloat(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = nullableFloat(v)
	return nil
}

type smoothRequest struct {
	U      [][]nullableFloat `json:"u"`
	V      [][]nullableFloat `json:"v"`
	Robust bool              `json:"robust"`
}

type smoothResponse struct {
	U     [][]nullableFloat `json:"u"`
	V     [][]nullableFloat `json:"v"`
	Error string            `json:"error,omitempty"`
}

// Smooth sends one slab pair to the engine and reads back the smoothed pair.
// Any protocol or shape violation fails with ErrEngineFailure; the engine is
// not consulted again after a failure.
func (s *ExecSmoother) Smooth(ctx context.Context, u, v [][]float64, robust bool) ([][]float64, [][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed {
		return nil, nil, fmt.Errorf("%w: engine previously failed", domain.ErrEngineFailure)
	}
	if err := s.start(); err != nil {
		s.failed = true
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrEngineFailure, err)
	}

	req := smoothRequest{U: toNullable(u), V: toNullable(v), Robust: robust}
	if err := s.enc.Encode(req); err != nil {
		s.failed = true
		return nil, nil, fmt.Errorf("%w: write request: %v", domain.ErrEngineFailure, err)
	}

	var resp smoothResponse
	if err := s.dec.Decode(&resp); err != nil {
		s.failed = true
		return nil, nil, fmt.Errorf("%w: read response: %v", domain.ErrEngineFailure, err)
	}
	if resp.Error != "" {
		s.failed = true
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrEngineFailure, resp.Error)
	}

	su, err := fromNullable(resp.U, len(u), len(u[0]))
	if err != nil {
		s.failed = true
		return nil, nil, fmt.Errorf("%w: malformed U: %v", domain.ErrEngineFailure, err)
	}
	sv, err := fromNullable(resp.V, len(v), len(v[0]))
	if err != nil {
		s.failed = true
		return nil, nil, fmt.Errorf("%w: malformed V: %v", domain.ErrEngineFailure, err)
	}
	return su, sv, nil
}

// start launches the engine process if it is not already running.
// Must be called with mu held.
func (s *ExecSmoother) start() error {
	if s.cmd != nil {
		return nil
	}

	cmd := exec.Command(s.path, s.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.path, err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.enc = json.NewEncoder(stdin)
	s.dec = json.NewDecoder(bufio.NewReader(stdout))
	return nil
}

// Close terminates the engine process.
func (s *ExecSmoother) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return nil
	}
	_ = s.stdin.Close()
	err := s.cmd.Wait()
	s.cmd = nil
	if err != nil && !s.failed {
		return fmt.Errorf("%w: engine exited: %v", domain.ErrEngineFailure, err)
	}
	return nil
}

func toNullable(rows [][]float64) [][]nullableFloat {
	out := make([][]nullableFloat, len(rows))
	for i, row := range rows {
		nr := make([]nullableFloat, len(row))
		for j, v := range row {
			nr[j] = nullableFloat(v)
		}
		out[i] = nr
	}
	return out
}

func fromNullable(rows [][]nullableFloat, wantRows, wantCols int) ([][]float64, error) {
	if len(rows) != wantRows {
		return nil, fmt.Errorf("got %d rows, expected %d", len(rows), wantRows)
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != wantCols {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), wantCols)
		}
		fr := make([]float64, len(row))
		for j, v := range row {
			fr[j] = float64(v)
		}
		out[i] = fr
	}
	return out, nil
}
