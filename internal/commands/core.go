package commands

import (
	"context"
	"encoding/json"

	"github.com/carzh/robot-color-picker/internal/station"
)

// OriginRPC tags commands queued through the JSON-RPC endpoint.
const OriginRPC = "rpc"

// RegisterCoreCommands registers the commands that go through the station queue
func RegisterCoreCommands(registry *CommandRegistry, st *station.Station) {
	registry.Register(NewPickCommandHandler(st))
	registry.Register(NewCalibrateCommandHandler(st))
	registry.Register(NewStatusCommandHandler(st))
}

func stationResult(resp station.CommandResponse) (interface{}, error) {
	if resp.Error != "" {
		msg := resp.Message
		if msg == "" {
			msg = resp.Error
		}
		return nil, &CommandError{Code: resp.Error, Message: msg}
	}
	return resp.Result, nil
}

// PickCommandHandler runs one full picking cycle
type PickCommandHandler struct {
	station *station.Station
}

// NewPickCommandHandler creates a new pick command handler
func NewPickCommandHandler(st *station.Station) *PickCommandHandler {
	return &PickCommandHandler{station: st}
}

// Handle processes pick commands
func (h *PickCommandHandler) Handle(ctx context.Context, params json.RawMessage) (interface{}, error) {
	args, err := StringParams(params)
	if err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, invalidParams("pick expects exactly one command string")
	}
	return stationResult(h.station.ExecuteCommand(ctx, station.CmdPick, station.Params{
		Command: args[0],
		Origin:  OriginRPC,
	}))
}

// GetName returns the command name
func (h *PickCommandHandler) GetName() string {
	return "pick"
}

// GetDescription returns the command description
func (h *PickCommandHandler) GetDescription() string {
	return "Resolve a command, find the first matching cluster and point at it"
}

// IsReadOnly returns false (the arm moves)
func (h *PickCommandHandler) IsReadOnly() bool {
	return false
}

// MovesArm returns true
func (h *PickCommandHandler) MovesArm() bool {
	return true
}

// CalibrateCommandHandler runs the arm tag calibration
type CalibrateCommandHandler struct {
	station *station.Station
}

// NewCalibrateCommandHandler creates a new calibrate command handler
func NewCalibrateCommandHandler(st *station.Station) *CalibrateCommandHandler {
	return &CalibrateCommandHandler{station: st}
}

// Handle processes calibrate commands
func (h *CalibrateCommandHandler) Handle(ctx context.Context, params json.RawMessage) (interface{}, error) {
	args, err := StringParams(params)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		return nil, invalidParams("This command does not accept parameters")
	}
	return stationResult(h.station.ExecuteCommand(ctx, station.CmdCalibrate, station.Params{Origin: OriginRPC}))
}

// GetName returns the command name
func (h *CalibrateCommandHandler) GetName() string {
	return "calibrate"
}

// GetDescription returns the command description
func (h *CalibrateCommandHandler) GetDescription() string {
	return "Calibrate the camera against the arm tag"
}

func (h *CalibrateCommandHandler) IsReadOnly() bool {
	return false
}

func (h *CalibrateCommandHandler) MovesArm() bool {
	return true
}

// StatusCommandHandler reports the station status
type StatusCommandHandler struct {
	station *station.Station
}

// NewStatusCommandHandler creates a new status command handler
func NewStatusCommandHandler(st *station.Station) *StatusCommandHandler {
	return &StatusCommandHandler{station: st}
}

// Handle processes status commands
func (h *StatusCommandHandler) Handle(ctx context.Context, params json.RawMessage) (interface{}, error) {
	args, err := StringParams(params)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		return nil, invalidParams("This command does not accept parameters")
	}
	return stationResult(h.station.ExecuteCommand(ctx, station.CmdStatus, station.Params{Origin: OriginRPC}))
}

func (h *StatusCommandHandler) GetName() string {
	return "status"
}

func (h *StatusCommandHandler) GetDescription() string {
	return "Report calibration state and the last cycle"
}

func (h *StatusCommandHandler) IsReadOnly() bool {
	return true
}

func (h *StatusCommandHandler) MovesArm() bool {
	return false
}
