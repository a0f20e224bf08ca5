package tracing

import (
	"github.com/sarchlab/vmstore/sim/hooking"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogHook writes every hook invocation to a zap logger.
type LogHook struct {
	logger *zap.Logger
	level  zapcore.Level
}

// NewLogHook returns a LogHook that logs at the given level.
func NewLogHook(logger *zap.Logger, level zapcore.Level) *LogHook {
	return &LogHook{logger: logger, level: level}
}

// Func logs the hook context.
func (h *LogHook) Func(ctx hooking.HookCtx) {
	ce := h.logger.Check(h.level, ctx.Pos.Name)
	if ce == nil {
		return
	}

	e := flatten(ctx)
	fields := []zap.Field{
		zap.Uint32("pid", uint32(e.pid)),
		zap.Uint64("vaddr", e.vAddr),
	}

	if e.pageType != 0 {
		fields = append(fields, zap.Stringer("type", e.pageType))
	}

	if e.slot >= 0 {
		fields = append(fields, zap.Int64("slot", e.slot))
	}

	if e.numPages > 0 {
		fields = append(fields, zap.Int("pages", e.numPages))
	}

	if e.bytes > 0 {
		fields = append(fields, zap.Uint64("bytes", e.bytes))
	}

	ce.Write(fields...)
}
