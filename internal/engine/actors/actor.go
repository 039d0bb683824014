// Package actors holds the request actors of the engine. Each actor owns no
// state of its own: it runs one operation per message against the services
// it was built with and responds with the result or an *utils.AppError.
package actors

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"devoverflow/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// GetCountsMsg asks an actor for its headline counts.
type GetCountsMsg struct{}

// Deps are shared by every actor in a pool.
type Deps struct {
	Metrics *utils.MetricsCollector
	Logger  *slog.Logger
	// OpTimeout bounds the storage work of one message.
	OpTimeout time.Duration
}

// Deadline is embedded in messages that write. The engine stamps it with the
// moment its caller stops waiting; after that the write must not commit.
type Deadline struct {
	Until time.Time
}

func (d *Deadline) SetDeadline(t time.Time) { d.Until = t }

func (d *Deadline) deadline() time.Time { return d.Until }

// Write is implemented by every message that embeds Deadline.
type Write interface {
	SetDeadline(t time.Time)
	deadline() time.Time
}

// operation bounds the storage work of msg by OpTimeout and, for writes, by
// the caller's deadline.
func (d Deps) operation(msg any) (stdctx.Context, stdctx.CancelFunc) {
	var ctx stdctx.Context
	var cancel stdctx.CancelFunc
	if d.OpTimeout > 0 {
		ctx, cancel = stdctx.WithTimeout(stdctx.Background(), d.OpTimeout)
	} else {
		ctx, cancel = stdctx.WithCancel(stdctx.Background())
	}
	w, ok := msg.(Write)
	if !ok || w.deadline().IsZero() {
		return ctx, cancel
	}
	bounded, cancelBounded := stdctx.WithDeadline(ctx, w.deadline())
	return bounded, func() {
		cancelBounded()
		cancel()
	}
}

// expired drops a write whose caller has already given up on it.
func (d Deps) expired(context actor.Context, name string) bool {
	w, ok := context.Message().(Write)
	if !ok || w.deadline().IsZero() || time.Now().Before(w.deadline()) {
		return false
	}
	d.Logger.Warn("dropping expired write", "actor", name, "type", fmt.Sprintf("%T", context.Message()))
	appErr := utils.NewTransientError("request expired before it ran", stdctx.DeadlineExceeded)
	d.Metrics.IncrementErrors(appErr)
	context.Respond(appErr)
	return true
}

// lifecycle logs system messages and reports whether msg was one.
func (d Deps) lifecycle(name string, msg any) bool {
	switch msg.(type) {
	case *actor.Started:
		d.Logger.Debug("actor started", "actor", name)
	case *actor.Stopping:
		d.Logger.Debug("actor stopping", "actor", name)
	case *actor.Stopped:
		d.Logger.Debug("actor stopped", "actor", name)
	case *actor.Restarting:
		d.Logger.Warn("actor restarting", "actor", name)
	default:
		return false
	}
	return true
}

// respond records the operation and answers the sender. Errors always cross
// the actor boundary as *utils.AppError.
func (d Deps) respond(context actor.Context, op string, start time.Time, result any, err error) {
	d.Metrics.AddOperationLatency(op, time.Since(start))
	if err != nil {
		appErr := utils.AsAppError(err)
		d.Metrics.IncrementErrors(appErr)
		if appErr.Code == utils.ErrInternal || appErr.Code == utils.ErrTransient {
			d.Logger.Error("operation failed", "op", op, utils.ErrAttr(err))
		}
		context.Respond(appErr)
		return
	}
	context.Respond(result)
}

func (d Deps) unknown(context actor.Context, name string) {
	d.Logger.Warn("unknown message", "actor", name, "type", fmt.Sprintf("%T", context.Message()))
	context.Respond(utils.NewAppError(utils.ErrInternal, "unsupported request", nil))
}
