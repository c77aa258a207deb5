package logging

import (
	"github.com/go-logr/logr"

	"github.com/kay-lambdadelta/multiemu-sub003/hooking"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// A Hook logs task runs and memory access faults.
type Hook struct {
	logger logr.Logger
}

// NewHook creates a Hook writing to logger.
func NewHook(logger logr.Logger) *Hook {
	return &Hook{logger: logger}
}

// Func logs the hook site if it is a known one.
func (h *Hook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case timing.HookPosTaskRun:
		run, ok := ctx.Item.(timing.TaskRun)
		if !ok {
			return
		}

		h.logger.V(LevelTasks).Info("task run",
			"owner", run.Owner,
			"task", run.Task,
			"periods", run.Periods,
			"now", run.Now,
			"requested", run.Requested)

	case memory.HookPosAccessFault:
		err, ok := ctx.Item.(*memory.AccessError)
		if !ok {
			return
		}

		h.logger.V(LevelAccess).Info("access fault",
			"space", err.Space,
			"direction", err.Direction.String(),
			"faults", len(err.Faults),
			"error", err.Error())
	}
}
