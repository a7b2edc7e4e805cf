// Package station serializes picking cycles around the single arm. One
// worker drains a FIFO queue, so a cycle never overlaps another motion.
package station

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/carzh/robot-color-picker/internal/arm"
	"github.com/carzh/robot-color-picker/internal/audit"
	"github.com/carzh/robot-color-picker/internal/color"
	"github.com/carzh/robot-color-picker/internal/config"
	"github.com/carzh/robot-color-picker/internal/matcher"
	"github.com/carzh/robot-color-picker/internal/picker"
	"github.com/carzh/robot-color-picker/internal/resolver"
)

// Command types
const (
	CmdPick      = "pick"
	CmdCalibrate = "calibrate"
	CmdSleep     = "sleep"
	CmdStatus    = "status"
)

// Error codes
const (
	CodeBusy          = "BUSY"
	CodeUnavailable   = "UNAVAILABLE"
	CodeInvalidParams = "INVALID_PARAMS"
	CodeInternal      = "INTERNAL"
)

// Params carries the arguments of a queued command.
type Params struct {
	Command string
	// Origin names the front-end that queued the command (console, rpc, session).
	Origin string
}

// Command represents a command to be processed by the station worker
type Command struct {
	Type      string
	Params    Params
	Ctx       context.Context
	Response  chan CommandResponse
	Timestamp time.Time
}

// CommandResponse represents the response from a command
type CommandResponse struct {
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Status is a snapshot of the station.
type Status struct {
	Calibrated bool   `json:"calibrated"`
	Asleep     bool   `json:"asleep"`
	Cycles     int    `json:"cycles"`
	LastTarget string `json:"lastTarget,omitempty"`
	LastFound  bool   `json:"lastFound"`
}

// Station owns the arm and the picking pipeline.
type Station struct {
	mu         sync.RWMutex
	calibrated bool
	asleep     bool
	cycles     int
	lastTarget color.Color
	lastFound  bool

	picker   *picker.Picker
	arm      arm.Arm
	recorder audit.Recorder
	logger   *zap.Logger

	enqueueTimeout time.Duration
	cycleTimeout   time.Duration

	commandQueue chan Command
	stopChan     chan struct{}
	closeOnce    sync.Once
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

// New creates a station and starts its worker. A nil recorder discards
// audit entries.
func New(cfg config.StationConfig, p *picker.Picker, a arm.Arm, recorder audit.Recorder, logger *zap.Logger) (*Station, error) {
	if p == nil || a == nil {
		return nil, errors.New("station needs a picker and an arm")
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}
	enqueueTimeout := time.Duration(cfg.EnqueueTimeoutSec) * time.Second
	if enqueueTimeout <= 0 {
		enqueueTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Station{
		picker:         p,
		arm:            a,
		recorder:       recorder,
		logger:         logger,
		enqueueTimeout: enqueueTimeout,
		cycleTimeout:   time.Duration(cfg.CycleTimeoutSec) * time.Second,
		commandQueue:   make(chan Command, queueSize),
		stopChan:       make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}

	s.wg.Add(1)
	go s.commandWorker()

	return s, nil
}

// Picker returns the station's picker.
func (s *Station) Picker() *picker.Picker { return s.picker }

// commandWorker processes commands in FIFO order
func (s *Station) commandWorker() {
	defer s.wg.Done()

	for {
		select {
		case cmd := <-s.commandQueue:
			s.processCommand(cmd)
		case <-s.stopChan:
			return
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Station) processCommand(cmd Command) {
	ctx := cmd.Ctx
	if ctx == nil {
		ctx = s.ctx
	}
	if s.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cycleTimeout)
		defer cancel()
	}

	var resp CommandResponse
	switch cmd.Type {
	case CmdPick:
		resp = s.handlePick(ctx, cmd.Params)
	case CmdCalibrate:
		resp = s.handleCalibrate(ctx)
	case CmdSleep:
		resp = s.handleSleep(ctx)
	case CmdStatus:
		resp = CommandResponse{Result: s.Status()}
	default:
		resp = CommandResponse{Error: CodeInternal, Message: fmt.Sprintf("unknown command %q", cmd.Type)}
	}

	s.logger.Debug("command processed",
		zap.String("type", cmd.Type),
		zap.String("origin", cmd.Params.Origin),
		zap.String("error", resp.Error),
		zap.Duration("latency", time.Since(cmd.Timestamp)),
	)
	cmd.Response <- resp
}

// handlePick runs one cycle: point at the match, or search when nothing
// matched, then return home.
func (s *Station) handlePick(ctx context.Context, p Params) CommandResponse {
	entry := audit.Entry{Origin: p.Origin, Command: p.Command}

	d, err := s.picker.Decide(ctx, p.Command)
	if err != nil {
		code := CodeInternal
		var sampleErr *matcher.SampleError
		if errors.Is(err, resolver.ErrEmptyCommand) || errors.As(err, &sampleErr) {
			code = CodeInvalidParams
		}
		if d.Resolution.Color != color.Unknown {
			entry.Target = d.Resolution.Color.String()
			entry.Method = string(d.Resolution.Source)
		}
		entry.Code = code
		s.recorder.Record(ctx, entry)
		return CommandResponse{Error: code, Message: err.Error()}
	}

	entry.Target = d.Resolution.Color.String()
	entry.Method = string(d.Resolution.Source)
	entry.Found = d.Match.Found
	entry.Position = d.Match.Position

	if d.Match.Found {
		err = s.arm.PointAt(ctx, *d.Match.Position)
	} else {
		err = s.arm.Search(ctx)
	}
	if err == nil {
		err = s.arm.Home(ctx)
	}

	s.mu.Lock()
	s.cycles++
	s.asleep = false
	s.lastTarget = d.Resolution.Color
	s.lastFound = d.Match.Found
	s.mu.Unlock()

	if err != nil {
		entry.Code = CodeInternal
		s.recorder.Record(ctx, entry)
		return CommandResponse{Error: CodeInternal, Message: fmt.Sprintf("arm motion failed: %v", err)}
	}

	s.recorder.Record(ctx, entry)
	return CommandResponse{Result: d}
}

func (s *Station) handleCalibrate(ctx context.Context) CommandResponse {
	if err := s.arm.Calibrate(ctx); err != nil {
		return CommandResponse{Error: CodeInternal, Message: fmt.Sprintf("calibration failed: %v", err)}
	}
	s.mu.Lock()
	s.calibrated = true
	s.asleep = false
	s.mu.Unlock()
	return CommandResponse{Result: s.Status()}
}

func (s *Station) handleSleep(ctx context.Context) CommandResponse {
	if err := s.arm.Sleep(ctx); err != nil {
		return CommandResponse{Error: CodeInternal, Message: fmt.Sprintf("sleep failed: %v", err)}
	}
	s.mu.Lock()
	s.asleep = true
	s.mu.Unlock()
	return CommandResponse{Result: s.Status()}
}

// Status returns the current station status without queueing.
func (s *Station) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Calibrated: s.calibrated,
		Asleep:     s.asleep,
		Cycles:     s.cycles,
		LastFound:  s.lastFound,
	}
	if s.lastTarget != color.Unknown {
		st.LastTarget = s.lastTarget.String()
	}
	return st
}

// ExecuteCommand queues a command and waits for its response.
func (s *Station) ExecuteCommand(ctx context.Context, cmdType string, params Params) CommandResponse {
	if ctx == nil {
		ctx = context.Background()
	}
	response := make(chan CommandResponse, 1)
	cmd := Command{
		Type:      cmdType,
		Params:    params,
		Ctx:       ctx,
		Response:  response,
		Timestamp: time.Now(),
	}

	select {
	case <-s.ctx.Done():
		return CommandResponse{Error: CodeUnavailable}
	default:
	}

	enqueue := time.NewTimer(s.enqueueTimeout)
	defer enqueue.Stop()

	// backpressure: give up when the queue stays full
	select {
	case s.commandQueue <- cmd:
		select {
		case resp := <-response:
			return resp
		case <-ctx.Done():
			return CommandResponse{Error: CodeInternal, Message: ctx.Err().Error()}
		case <-s.ctx.Done():
			return CommandResponse{Error: CodeUnavailable}
		}
	case <-enqueue.C:
		return CommandResponse{Error: CodeBusy}
	case <-ctx.Done():
		return CommandResponse{Error: CodeInternal, Message: ctx.Err().Error()}
	case <-s.ctx.Done():
		return CommandResponse{Error: CodeUnavailable}
	}
}

// Close stops the worker. Commands queued afterwards fail with UNAVAILABLE.
func (s *Station) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.stopChan)
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("shutdown timeout")
	}
}
