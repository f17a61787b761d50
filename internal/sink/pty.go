package sink

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"github.com/pleimann/gopad/internal/mapping"
)

// PTY is a Sink that drives a terminal program running in a pseudo-terminal.
// Discrete actions become key byte sequences; continuous pointer and scroll
// motion degrades to arrow/page key steps, accumulated so fractional deltas
// are not lost.
type PTY struct {
	command    string
	args       []string
	workingDir string

	cursorSensitivity float64
	scrollSensitivity float64

	mu   sync.Mutex
	ptmx *os.File
	cmd  *exec.Cmd

	// Fractional motion carried between calls.
	carryX, carryY   float64
	scrollX, scrollY float64
}

// NewPTY creates a PTY sink for the given command.
func NewPTY(command string, args []string, workingDir string, cursorSens, scrollSens float64) (*PTY, error) {
	if command == "" {
		return nil, fmt.Errorf("command is required")
	}
	if cursorSens <= 0 {
		cursorSens = 1.0
	}
	if scrollSens <= 0 {
		scrollSens = 1.0
	}
	return &PTY{
		command:           command,
		args:              args,
		workingDir:        workingDir,
		cursorSensitivity: cursorSens,
		scrollSensitivity: scrollSens,
	}, nil
}

// Start launches the target process in a PTY.
func (p *PTY) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	if p.workingDir != "" {
		cmd.Dir = p.workingDir
	}
	cmd.Env = os.Environ()

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("failed to start PTY: %w", err)
	}

	p.ptmx = ptmx
	p.cmd = cmd

	// Drain the process output so it never blocks on a full PTY buffer.
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := ptmx.Read(buf); err != nil {
				return
			}
		}
	}()

	go func() {
		_ = cmd.Wait()
	}()

	return nil
}

// Stop terminates the process and closes the PTY.
func (p *PTY) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	if p.ptmx != nil {
		_ = p.ptmx.Close()
		p.ptmx = nil
	}
}

func (p *PTY) write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ptmx == nil {
		return fmt.Errorf("PTY not started")
	}
	if _, err := p.ptmx.Write(data); err != nil {
		return fmt.Errorf("failed to write to PTY: %w", err)
	}
	return nil
}

func (p *PTY) writeKeys(keys []string) error {
	for _, keyStr := range keys {
		key, err := ParseKey(keyStr)
		if err != nil {
			return fmt.Errorf("invalid key %q: %w", keyStr, err)
		}
		if err := p.write(key.ToBytes()); err != nil {
			return fmt.Errorf("failed to write key %q: %w", keyStr, err)
		}
	}
	return nil
}

// Execute performs a discrete action.
func (p *PTY) Execute(action mapping.Action) error {
	switch action.Kind {
	case mapping.ActionKeys, mapping.ActionMacro:
		return p.writeKeys(action.Keys)
	case mapping.ActionExec:
		cmd := exec.Command("/bin/sh", "-c", action.Command)
		return cmd.Start()
	case mapping.ActionScript:
		// The scripting host is a separate collaborator; a PTY target
		// has nowhere to run it.
		log.Printf("script action %q not supported by PTY sink", action.Script)
		return nil
	default:
		return fmt.Errorf("unknown action kind: %v", action.Kind)
	}
}

// StartHold emits the action's keys once. A terminal has no key-up event, so
// a hold on a PTY degrades to a single press.
func (p *PTY) StartHold(action mapping.Action) error {
	return p.Execute(action)
}

// StopHold is a no-op on a PTY; see StartHold.
func (p *PTY) StopHold(mapping.Action) error {
	return nil
}

// MoveCursor maps pointer motion to arrow key steps.
func (p *PTY) MoveCursor(dx, dy float64) error {
	p.mu.Lock()
	p.carryX += dx * p.cursorSensitivity
	p.carryY += dy * p.cursorSensitivity
	stepsX, stepsY := splitSteps(&p.carryX), splitSteps(&p.carryY)
	p.mu.Unlock()

	return p.emitSteps(stepsX, stepsY, "right", "left", "down", "up")
}

// Scroll maps scroll deltas to up/down (and left/right) key steps.
func (p *PTY) Scroll(dx, dy float64, momentum bool) error {
	p.mu.Lock()
	p.scrollX += dx * p.scrollSensitivity
	p.scrollY += dy * p.scrollSensitivity
	stepsX, stepsY := splitSteps(&p.scrollX), splitSteps(&p.scrollY)
	p.mu.Unlock()

	return p.emitSteps(stepsX, stepsY, "right", "left", "down", "up")
}

func (p *PTY) emitSteps(stepsX, stepsY int, posX, negX, posY, negY string) error {
	emit := func(key string, count int) error {
		kp, err := ParseKey(key)
		if err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			if err := p.write(kp.ToBytes()); err != nil {
				return err
			}
		}
		return nil
	}

	if stepsX > 0 {
		if err := emit(posX, stepsX); err != nil {
			return err
		}
	} else if stepsX < 0 {
		if err := emit(negX, -stepsX); err != nil {
			return err
		}
	}
	if stepsY > 0 {
		if err := emit(posY, stepsY); err != nil {
			return err
		}
	} else if stepsY < 0 {
		if err := emit(negY, -stepsY); err != nil {
			return err
		}
	}
	return nil
}

// splitSteps removes and returns the whole-step part of an accumulator,
// leaving the fractional remainder in place.
func splitSteps(acc *float64) int {
	steps := int(math.Trunc(*acc))
	*acc -= float64(steps)
	return steps
}
