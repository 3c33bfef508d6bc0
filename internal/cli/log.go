package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns the CLI logger. Lines carry a centisecond clock
// ("14:32:01.45") so the stacking and meshing stages can be told apart in
// long builds.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one command from configuration to written files.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress starts timing and notes the configuration at debug level.
func newProgress(l *log.Logger, config string) *progress {
	l.Debug("starting", "config", config)
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the run counts in keyvals and the elapsed time,
// e.g. "Stacked bed ghosts=12 took=1.234s".
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "took", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}

type ctxKey struct{}

// withLogger attaches the command logger so runners built deeper in a
// command inherit its level.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// loggerFromContext falls back to log.Default() outside a command.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
