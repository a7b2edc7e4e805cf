// Package console runs the line-oriented operator loop: one command per line,
// one picking cycle per command.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/carzh/robot-color-picker/internal/picker"
	"github.com/carzh/robot-color-picker/internal/station"
)

// DefaultPrompt is printed before every line is read.
const DefaultPrompt = "Give me an input! "

// ErrExit is returned by Run when the operator asks to quit.
var ErrExit = errors.New("exit requested")

// Runner executes station commands.
type Runner interface {
	ExecuteCommand(ctx context.Context, cmdType string, params station.Params) station.CommandResponse
}

// Session reads commands from one input stream.
type Session struct {
	runner Runner
	prompt string
	origin string
	logger *zap.Logger
}

// NewSession creates a session. origin tags the audit entries of its cycles.
func NewSession(runner Runner, prompt, origin string, logger *zap.Logger) *Session {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{runner: runner, prompt: prompt, origin: origin, logger: logger}
}

type styles struct {
	prompt  lipgloss.Style
	target  lipgloss.Style
	found   lipgloss.Style
	missing lipgloss.Style
	failure lipgloss.Style
	info    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		prompt:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		target:  r.NewStyle().Bold(true),
		found:   r.NewStyle().Foreground(lipgloss.Color("42")),
		missing: r.NewStyle().Foreground(lipgloss.Color("220")),
		failure: r.NewStyle().Foreground(lipgloss.Color("196")),
		info:    r.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

// Run reads lines from in until EOF, an exit word, or ctx is done. Output is
// styled only when out is a terminal.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	st := newStyles(lipgloss.NewRenderer(out))
	scanner := bufio.NewScanner(in)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(out, st.prompt.Render(s.prompt))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "q", "quit":
			resp := s.runner.ExecuteCommand(ctx, station.CmdSleep, station.Params{Origin: s.origin})
			if resp.Error != "" {
				fmt.Fprintln(out, st.failure.Render(fmt.Sprintf("sleep failed: %s", describe(resp))))
			}
			fmt.Fprintln(out, st.info.Render("Going to sleep. Bye!"))
			return ErrExit
		case "armtag":
			resp := s.runner.ExecuteCommand(ctx, station.CmdCalibrate, station.Params{Origin: s.origin})
			if resp.Error != "" {
				fmt.Fprintln(out, st.failure.Render(fmt.Sprintf("calibration failed: %s", describe(resp))))
				continue
			}
			fmt.Fprintln(out, st.info.Render("Calibrated against the arm tag."))
		default:
			resp := s.runner.ExecuteCommand(ctx, station.CmdPick, station.Params{Command: line, Origin: s.origin})
			fmt.Fprintln(out, s.render(st, resp))
		}
	}
}

func (s *Session) render(st styles, resp station.CommandResponse) string {
	if resp.Error != "" {
		return st.failure.Render("error: " + describe(resp))
	}
	d, ok := resp.Result.(picker.Decision)
	if !ok {
		s.logger.Warn("unexpected pick result", zap.Any("result", resp.Result))
		return st.failure.Render("error: unexpected result")
	}

	target := st.target.Render(d.Resolution.Color.String())
	via := st.info.Render(fmt.Sprintf("(%s)", d.Resolution.Source))
	if d.Match.Found {
		p := d.Match.Position
		return fmt.Sprintf("%s %s %s", target, via,
			st.found.Render(fmt.Sprintf("pointing at (%.3f, %.3f, %.3f)", p.X, p.Y, p.Z)))
	}
	return fmt.Sprintf("%s %s %s", target, via,
		st.missing.Render(fmt.Sprintf("not among %d objects, shaking head", d.Visible)))
}

func describe(resp station.CommandResponse) string {
	if resp.Message != "" {
		return fmt.Sprintf("%s %s", resp.Error, resp.Message)
	}
	return resp.Error
}
