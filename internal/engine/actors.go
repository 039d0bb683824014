package engine

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"devoverflow/internal/ai"
	"devoverflow/internal/auth"
	"devoverflow/internal/content"
	"devoverflow/internal/engine/actors"
	"devoverflow/internal/utils"
	"devoverflow/internal/votes"

	"github.com/asynkron/protoactor-go/actor"
)

// Account linking may retry three times at five seconds each.
const linkTimeout = 20 * time.Second

// Services are the domain services the actors run against.
type Services struct {
	Content *content.Service
	Votes   *votes.Ledger
	Auth    *auth.Service
	Drafter *ai.Drafter
}

type Options struct {
	PoolSize       int
	OpTimeout      time.Duration
	RequestTimeout time.Duration
	DraftTimeout   time.Duration
}

// Pool names a group of identical actors.
type Pool int

const (
	QuestionPool Pool = iota
	TagPool
	VotePool
	UserPool
	DraftPool
)

func (p Pool) String() string {
	switch p {
	case QuestionPool:
		return "question"
	case TagPool:
		return "tag"
	case VotePool:
		return "vote"
	case UserPool:
		return "user"
	case DraftPool:
		return "draft"
	default:
		return "unknown"
	}
}

// roundRobin spreads requests over the actors of one pool.
type roundRobin struct {
	pids []*actor.PID
	next atomic.Uint64
}

func (r *roundRobin) pick() *actor.PID {
	n := r.next.Add(1) - 1
	return r.pids[n%uint64(len(r.pids))]
}

// Engine coordinates communication between actors
type Engine struct {
	root           *actor.RootContext
	pools          map[Pool]*roundRobin
	metrics        *utils.MetricsCollector
	logger         *slog.Logger
	requestTimeout time.Duration
	draftTimeout   time.Duration
}

func NewEngine(system *actor.ActorSystem, svc Services, metrics *utils.MetricsCollector, logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = utils.NewMetricsCollector()
	}
	if opts.PoolSize < 1 {
		opts.PoolSize = 1
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.OpTimeout <= 0 || opts.OpTimeout >= opts.RequestTimeout {
		opts.OpTimeout = writeDeadline(opts.RequestTimeout)
	}

	e := &Engine{
		root:           system.Root,
		pools:          make(map[Pool]*roundRobin),
		metrics:        metrics,
		logger:         logger,
		requestTimeout: opts.RequestTimeout,
		// The future outlives the drafter's own deadline so its error wins.
		draftTimeout: opts.DraftTimeout + 5*time.Second,
	}
	deps := actors.Deps{Metrics: metrics, Logger: logger, OpTimeout: opts.OpTimeout}

	e.spawn(QuestionPool, opts.PoolSize, func() actor.Actor {
		return actors.NewQuestionActor(svc.Content, deps)
	})
	e.spawn(TagPool, opts.PoolSize, func() actor.Actor {
		return actors.NewTagActor(svc.Content, deps)
	})
	e.spawn(VotePool, opts.PoolSize, func() actor.Actor {
		return actors.NewVoteActor(svc.Votes, deps)
	})
	e.spawn(UserPool, opts.PoolSize, func() actor.Actor {
		return actors.NewUserActor(svc.Auth, deps)
	})
	e.spawn(DraftPool, opts.PoolSize, func() actor.Actor {
		return actors.NewDraftActor(svc.Drafter, svc.Content, deps)
	})

	logger.Info("engine started", "pool_size", opts.PoolSize)
	return e
}

func (e *Engine) spawn(pool Pool, size int, producer func() actor.Actor) {
	props := actor.PropsFromProducer(producer)
	rr := &roundRobin{pids: make([]*actor.PID, 0, size)}
	for range size {
		rr.pids = append(rr.pids, e.root.Spawn(props))
	}
	e.pools[pool] = rr
}

// PID returns the next actor of a pool.
func (e *Engine) PID(pool Pool) *actor.PID {
	return e.pools[pool].pick()
}

func (e *Engine) timeoutFor(pool Pool, msg any) time.Duration {
	switch {
	case pool == DraftPool:
		return e.draftTimeout
	case pool == UserPool:
		if _, ok := msg.(*actors.OAuthSignInMsg); ok {
			return linkTimeout
		}
	}
	return e.requestTimeout
}

// writeDeadline leaves the actor a margin to answer before the future gives up.
func writeDeadline(timeout time.Duration) time.Duration {
	return timeout - timeout/10
}

// Request sends msg to the next actor of a pool and waits for its answer.
// Actor failures arrive as *utils.AppError. A missed deadline is transient for
// reads; for writes the outcome is unknown and the error is not retryable.
func Request[T any](e *Engine, pool Pool, msg any) (T, error) {
	var zero T
	e.metrics.IncrementRequests()

	timeout := e.timeoutFor(pool, msg)
	write, isWrite := msg.(actors.Write)
	if isWrite {
		write.SetDeadline(time.Now().Add(writeDeadline(timeout)))
	}

	future := e.root.RequestFuture(e.PID(pool), msg, timeout)
	result, err := future.Result()
	if err != nil {
		e.logger.Warn("actor request failed", "pool", pool.String(), "msg", fmt.Sprintf("%T", msg), utils.ErrAttr(err))
		if isWrite {
			return zero, utils.NewOutcomeUnknownError(err)
		}
		return zero, utils.NewTransientError("request timed out, please try again", err)
	}

	if appErr, ok := result.(*utils.AppError); ok {
		return zero, appErr
	}
	v, ok := result.(T)
	if !ok {
		return zero, utils.NewAppError(utils.ErrInternal, "unexpected response", fmt.Errorf("got %T", result))
	}
	return v, nil
}

// Shutdown stops every actor.
func (e *Engine) Shutdown() {
	for pool, rr := range e.pools {
		for _, pid := range rr.pids {
			e.root.Stop(pid)
		}
		e.logger.Debug("pool stopped", "pool", pool.String())
	}
}
