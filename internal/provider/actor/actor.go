// Package actor implements the generic Provider Actor (spec §4.4): a
// long-running task with exclusive ownership of one backend pool,
// addressed through a bounded inbox of command/reply pairs. Kind-specific
// packages (database, cache, storage, email, filetransfer) supply the
// Handler closure that actually talks to a backend; this package owns the
// inbox, the stop lifecycle, and panic containment.
package actor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/aras-services/native-gateway/internal/domain"
)

// DefaultInboxDepth is the spec's minimum default bound (§4.4).
const DefaultInboxDepth = 32

// Command is one inbox entry: an opaque encoded op plus a one-shot reply
// channel. Kind packages define their own op/args encoding on top of this.
type Command struct {
	Op      string
	Args    []byte
	ReplyCh chan Reply
}

// Reply is the one-shot response to a Command.
type Reply struct {
	Value []byte
	Err   error
}

// Handler processes one command against the live backend pool.
type Handler func(ctx context.Context, op string, args []byte) ([]byte, error)

// TestConnection probes reachability without going through the inbox.
type TestConnection func(ctx context.Context) (time.Duration, error)

// Info returns a sanitized descriptor for admin listings.
type Info func() domain.ConnectionInfo

// Close releases the backend pool. Called once, after the inbox drains.
type Close func()

// Actor is a running Provider Actor: one goroutine owning inbox, handler,
// and pool lifecycle.
type Actor struct {
	name    string
	kind    domain.ProviderKind
	inbox   chan Command
	handle  Handler
	test    TestConnection
	info    Info
	closeFn Close
	stop    chan struct{}
	stopped chan struct{}
	logger  *zap.Logger

	stopOnce sync.Once
}

// Spawn starts the actor's goroutine and returns its live handle. The pool
// must already be open by the time Spawn is called — activation failure
// (pool-open) is the caller's (Provider Registry's) concern, not the
// actor's.
func Spawn(name string, kind domain.ProviderKind, inboxDepth int, handle Handler, test TestConnection, info Info, closeFn Close, logger *zap.Logger) *Actor {
	if inboxDepth <= 0 {
		inboxDepth = DefaultInboxDepth
	}
	a := &Actor{
		name:    name,
		kind:    kind,
		inbox:   make(chan Command, inboxDepth),
		handle:  handle,
		test:    test,
		info:    info,
		closeFn: closeFn,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
		logger:  logger,
	}
	var wg conc.WaitGroup
	wg.Go(a.run)
	go func() {
		wg.Wait()
	}()
	return a
}

func (a *Actor) run() {
	defer close(a.stopped)
	defer a.closeFn()
	for {
		select {
		case cmd := <-a.inbox:
			a.process(cmd)
		case <-a.stop:
			a.drain()
			return
		}
	}
}

// drain processes whatever commands were already accepted into the inbox
// before the actor exits; senders arriving after that get ProviderStopping.
func (a *Actor) drain() {
	for {
		select {
		case cmd := <-a.inbox:
			a.process(cmd)
		default:
			return
		}
	}
}

func (a *Actor) process(cmd Command) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("provider actor panic",
				zap.String("provider", a.name), zap.Any("recover", r))
			cmd.ReplyCh <- Reply{Err: fmt.Errorf("provider %s: actor panic: %v", a.name, r)}
		}
	}()
	value, err := a.handle(context.Background(), cmd.Op, cmd.Args)
	cmd.ReplyCh <- Reply{Value: value, Err: err}
}

// Send enqueues a command and blocks until either a reply arrives or the
// actor has stopped accepting new work. A full inbox blocks the caller —
// this is the backpressure mechanism the spec requires (§4.4, B4).
func (a *Actor) Send(ctx context.Context, op string, args []byte) ([]byte, error) {
	reply := make(chan Reply, 1)
	cmd := Command{Op: op, Args: args, ReplyCh: reply}

	select {
	case <-a.stopped:
		return nil, domain.ErrProviderStopping
	default:
	}

	select {
	case a.inbox <- cmd:
	case <-a.stopped:
		return nil, domain.ErrProviderStopping
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.Value, r.Err
	case <-a.stopped:
		select {
		case r := <-reply:
			return r.Value, r.Err
		default:
			return nil, domain.ErrProviderStopping
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TestConnection delegates to the backend's reachability probe.
func (a *Actor) TestConnection(ctx context.Context) error {
	latency, err := a.test(ctx)
	if err != nil {
		return &domain.ConnectionError{Message: err.Error(), Latency: latency}
	}
	return nil
}

// Info returns the sanitized admin descriptor.
func (a *Actor) Info() domain.ConnectionInfo { return a.info() }

// Name and Kind identify which provider this actor backs.
func (a *Actor) Name() string              { return a.name }
func (a *Actor) Kind() domain.ProviderKind { return a.kind }

// Stop signals the actor to stop accepting commands, waits for its inbox
// to drain and the pool to close, then returns.
func (a *Actor) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() { close(a.stop) })
	select {
	case <-a.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
