package tracing

import (
	"github.com/kay-lambdadelta/multiemu-sub003/hooking"
	"github.com/kay-lambdadelta/multiemu-sub003/memory"
	"github.com/kay-lambdadelta/multiemu-sub003/timing"
)

// TraceHook is a hook that forwards task runs and access faults to a Tracer.
type TraceHook struct {
	t Tracer
}

// NewTraceHook returns a new TraceHook.
func NewTraceHook(t Tracer) *TraceHook {
	return &TraceHook{t: t}
}

// Func forwards the hook item to the tracer.
func (h *TraceHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case timing.HookPosTaskRun:
		if run, ok := ctx.Item.(timing.TaskRun); ok {
			h.t.TaskRun(run)
		}
	case memory.HookPosAccessFault:
		if err, ok := ctx.Item.(*memory.AccessError); ok {
			h.t.AccessFault(err)
		}
	}
}

// CollectTrace lets the tracer observe a hookable, usually a machine.
func CollectTrace(domain hooking.Hookable, t Tracer) {
	domain.AcceptHook(NewTraceHook(t))
}
