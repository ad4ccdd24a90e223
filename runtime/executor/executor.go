// Package executor runs compiled procedures against a scene.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opal-lang/sheetc/core/invariant"
	"github.com/opal-lang/sheetc/runtime/compiler"
	"github.com/opal-lang/sheetc/runtime/scene"
	"github.com/opal-lang/sheetc/runtime/scope"
)

// DefaultMaxLoopIterations bounds a single loop run when Config leaves it 0.
const DefaultMaxLoopIterations = 1_000_000

// ErrLoopLimit is returned when one run of a loop exceeds
// Config.MaxLoopIterations.
var ErrLoopLimit = errors.New("loop iteration limit exceeded")

// Logger receives executor progress messages.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, keysAndValues ...any) {}
func (noopLogger) Info(msg string, keysAndValues ...any)  {}
func (noopLogger) Warn(msg string, keysAndValues ...any)  {}
func (noopLogger) Error(msg string, keysAndValues ...any) {}

// Config configures the executor
type Config struct {
	Logger            Logger
	MaxLoopIterations int            // per loop run; 0 means DefaultMaxLoopIterations
	Debug             DebugLevel     // Debug tracing (development only)
	Telemetry         TelemetryLevel // Telemetry collection
}

// DebugLevel controls debug tracing
type DebugLevel int

const (
	DebugOff      DebugLevel = iota // No debug info (default)
	DebugPaths                      // Top-level event entry/exit
	DebugDetailed                   // Every event and loop iteration
)

// TelemetryLevel controls telemetry collection
type TelemetryLevel int

const (
	TelemetryOff    TelemetryLevel = iota // Zero overhead (default)
	TelemetryBasic                        // Counts only
	TelemetryTiming                       // Counts + timing per top-level event
)

// ExecutionResult describes one run of a procedure.
type ExecutionResult struct {
	Duration    time.Duration
	EventsRun   int                 // events whose conditions held, counting each loop iteration
	Telemetry   *ExecutionTelemetry // nil if TelemetryOff
	DebugEvents []DebugEvent        // nil if DebugOff
}

// ExecutionTelemetry holds execution counters.
type ExecutionTelemetry struct {
	ConditionsTested int
	ActionsRun       int
	Iterations       int
	EventTimings     []EventTiming // top-level events, if TelemetryTiming
}

// EventTiming holds timing information for a top-level event.
type EventTiming struct {
	Path     string
	Duration time.Duration
}

// DebugEvent is a debug trace entry.
type DebugEvent struct {
	Timestamp time.Time
	Event     string // "enter_execute", "event", "iteration", ...
	Path      string
	Context   string
}

// executor holds execution state
type executor struct {
	config Config
	logger Logger
	proc   *compiler.Procedure
	scene  *scene.Scene
	stack  scope.Stack

	eventsRun   int
	debugEvents []DebugEvent
	telemetry   *ExecutionTelemetry
}

// Execute runs proc once against sc. Scene state changed before an error is
// kept.
func Execute(ctx context.Context, proc *compiler.Procedure, sc *scene.Scene, config Config) (*ExecutionResult, error) {
	invariant.NotNil(proc, "proc")
	invariant.NotNil(sc, "scene")

	if config.MaxLoopIterations <= 0 {
		config.MaxLoopIterations = DefaultMaxLoopIterations
	}
	e := &executor{config: config, logger: config.Logger, proc: proc, scene: sc}
	if e.logger == nil {
		e.logger = noopLogger{}
	}
	if config.Telemetry != TelemetryOff {
		e.telemetry = &ExecutionTelemetry{}
	}

	start := time.Now()
	if config.Debug >= DebugPaths {
		e.recordDebugEvent("enter_execute", "", fmt.Sprintf("sheet=%s", proc.Sheet))
	}

	err := ctx.Err()
	if err == nil {
		err = e.block(ctx, proc.Root, newEnv(e, nil), true)
	}

	duration := time.Since(start)
	if config.Debug >= DebugPaths {
		e.recordDebugEvent("exit_execute", "", fmt.Sprintf("events_run=%d, duration=%v", e.eventsRun, duration))
	}
	if err != nil {
		e.logger.Error("execution stopped", "sheet", proc.Sheet, "error", err)
	} else {
		e.logger.Debug("executed events sheet", "sheet", proc.Sheet, "events_run", e.eventsRun, "duration", duration)
	}

	invariant.Postcondition(err != nil || e.stack.Depth() == 0, "scope stack must be empty after execution")

	return &ExecutionResult{
		Duration:    duration,
		EventsRun:   e.eventsRun,
		Telemetry:   e.telemetry,
		DebugEvents: e.debugEvents,
	}, err
}

// block runs a sibling list. matched carries the Else chain: it holds
// whether the chain's last Standard or Else event ran.
func (e *executor) block(ctx context.Context, b *compiler.Block, parent *env, top bool) error {
	if b == nil {
		return nil
	}
	matched := false
	for _, n := range b.Nodes {
		if err := ctx.Err(); err != nil {
			return err
		}

		var start time.Time
		if top && e.config.Telemetry == TelemetryTiming {
			start = time.Now()
		}
		if e.config.Debug >= DebugDetailed || (top && e.config.Debug >= DebugPaths) {
			e.recordDebugEvent("event", n.Head().Path, fmt.Sprintf("%T", n))
		}

		var err error
		switch n := n.(type) {
		case *compiler.StandardNode:
			matched, err = e.standard(ctx, &n.Header, parent)
		case *compiler.ElseNode:
			if !matched {
				matched, err = e.standard(ctx, &n.Header, parent)
			}
		case *compiler.RepeatNode:
			matched = false
			err = e.repeat(ctx, n, parent)
		case *compiler.WhileNode:
			matched = false
			err = e.while(ctx, n, parent)
		case *compiler.ForEachNode:
			matched = false
			err = e.forEach(ctx, n, parent)
		case *compiler.ForEachChildNode:
			matched = false
			err = e.forEachChild(ctx, n, parent)
		case *compiler.GroupNode:
			matched = false
			err = e.block(ctx, n.Sub, parent.clone(), false)
		case *compiler.LinkNode:
			matched = false
			err = e.block(ctx, n.Sub, parent.clone(), false)
		default:
			invariant.Invariant(false, "unknown node type: %T", n)
		}
		if err != nil {
			return err
		}

		if !start.IsZero() {
			e.telemetry.EventTimings = append(e.telemetry.EventTimings, EventTiming{
				Path:     n.Head().Path,
				Duration: time.Since(start),
			})
		}
	}
	return nil
}

// enter pushes h's frame, if any. The returned function pops it.
func (e *executor) enter(h *compiler.Header) (*scope.Live, func()) {
	if h.Frame == nil {
		return nil, func() {}
	}
	live := e.stack.Push(h.Frame)
	return live, e.stack.Pop
}

// standard runs a Standard or Else event and reports whether its
// conditions held.
func (e *executor) standard(ctx context.Context, h *compiler.Header, parent *env) (bool, error) {
	_, leave := e.enter(h)
	defer leave()
	return e.body(ctx, h, parent.clone())
}

// body tests h's conditions in ev and, when they hold, runs its actions and
// sub-events.
func (e *executor) body(ctx context.Context, h *compiler.Header, ev *env) (bool, error) {
	if !e.conditions(ev, h.Conditions) {
		return false, nil
	}
	e.eventsRun++
	e.actions(ev, h.Actions)
	return true, e.block(ctx, h.Sub, ev, false)
}

func (e *executor) recordDebugEvent(event, path, context string) {
	e.debugEvents = append(e.debugEvents, DebugEvent{
		Timestamp: time.Now(),
		Event:     event,
		Path:      path,
		Context:   context,
	})
}
