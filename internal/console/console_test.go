package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/carzh/robot-color-picker/internal/color"
	"github.com/carzh/robot-color-picker/internal/matcher"
	"github.com/carzh/robot-color-picker/internal/picker"
	"github.com/carzh/robot-color-picker/internal/resolver"
	"github.com/carzh/robot-color-picker/internal/station"
	"github.com/carzh/robot-color-picker/internal/vision"
)

type call struct {
	cmdType string
	params  station.Params
}

type fakeRunner struct {
	calls []call
	reply func(cmdType string, params station.Params) station.CommandResponse
}

func (f *fakeRunner) ExecuteCommand(ctx context.Context, cmdType string, params station.Params) station.CommandResponse {
	f.calls = append(f.calls, call{cmdType, params})
	if f.reply != nil {
		return f.reply(cmdType, params)
	}
	return station.CommandResponse{Result: station.Status{}}
}

func foundDecision(params station.Params) station.CommandResponse {
	return station.CommandResponse{Result: picker.Decision{
		Command:    params.Command,
		Resolution: resolver.Resolution{Color: color.Red, Source: resolver.SourceKeyword},
		Match: matcher.Result{
			Found: true, Color: color.Red, Index: 0,
			Position: &vision.Position{X: 0.2, Y: 0.1, Z: 0.05},
		},
		Visible: 2,
	}}
}

func TestSessionRun(t *testing.T) {
	runner := &fakeRunner{reply: func(cmdType string, params station.Params) station.CommandResponse {
		if cmdType == station.CmdPick {
			return foundDecision(params)
		}
		return station.CommandResponse{Result: station.Status{}}
	}}
	s := NewSession(runner, "", "console", nil)

	var out bytes.Buffer
	err := s.Run(context.Background(), strings.NewReader("\n  \nred block\narmtag\nquit\nignored\n"), &out)
	if !errors.Is(err, ErrExit) {
		t.Fatalf("Expected ErrExit, got %v", err)
	}

	want := []string{station.CmdPick, station.CmdCalibrate, station.CmdSleep}
	if len(runner.calls) != len(want) {
		t.Fatalf("Expected %d calls, got %+v", len(want), runner.calls)
	}
	for i, w := range want {
		if runner.calls[i].cmdType != w {
			t.Errorf("Call %d: expected %s, got %s", i, w, runner.calls[i].cmdType)
		}
		if runner.calls[i].params.Origin != "console" {
			t.Errorf("Call %d: expected origin console, got %q", i, runner.calls[i].params.Origin)
		}
	}
	if runner.calls[0].params.Command != "red block" {
		t.Errorf("Expected trimmed command, got %q", runner.calls[0].params.Command)
	}

	text := out.String()
	for _, s := range []string{DefaultPrompt, "red", "(keyword)", "pointing at (0.200, 0.100, 0.050)", "Calibrated", "Bye!"} {
		if !strings.Contains(text, s) {
			t.Errorf("Expected output to contain %q, got:\n%s", s, text)
		}
	}
}

func TestSessionExitWords(t *testing.T) {
	for _, word := range []string{"exit", "q", "QUIT"} {
		t.Run(word, func(t *testing.T) {
			runner := &fakeRunner{}
			err := NewSession(runner, "> ", "console", nil).Run(context.Background(), strings.NewReader(word+"\n"), &bytes.Buffer{})
			if !errors.Is(err, ErrExit) {
				t.Fatalf("Expected ErrExit, got %v", err)
			}
			if len(runner.calls) != 1 || runner.calls[0].cmdType != station.CmdSleep {
				t.Errorf("Expected a single sleep, got %+v", runner.calls)
			}
		})
	}
}

func TestSessionNotFoundAndErrors(t *testing.T) {
	runner := &fakeRunner{reply: func(cmdType string, params station.Params) station.CommandResponse {
		if params.Command == "busy" {
			return station.CommandResponse{Error: station.CodeBusy, Message: "queue full"}
		}
		return station.CommandResponse{Result: picker.Decision{
			Command:    params.Command,
			Resolution: resolver.Resolution{Color: color.Blue, Source: resolver.SourceClassifier},
			Match:      matcher.Result{Color: color.Blue, Index: -1},
			Visible:    3,
		}}
	}}

	var out bytes.Buffer
	err := NewSession(runner, "> ", "session", nil).Run(context.Background(), strings.NewReader("like the sky\nbusy\n"), &out)
	if err != nil {
		t.Fatalf("Expected nil error at EOF, got %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "not among 3 objects, shaking head") {
		t.Errorf("Expected not-found line, got:\n%s", text)
	}
	if !strings.Contains(text, "error: BUSY queue full") {
		t.Errorf("Expected busy error line, got:\n%s", text)
	}
}

func TestSessionCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &fakeRunner{}
	err := NewSession(runner, "", "console", nil).Run(ctx, strings.NewReader("red\n"), &bytes.Buffer{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("Expected no calls, got %+v", runner.calls)
	}
}
