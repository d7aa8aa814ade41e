// Package registry implements the Handler Registry (spec §4.2): the
// concurrent map from endpoint id to the currently-active Loaded Image,
// with graceful swap, retired-image tracking, and drain-watchdog
// supervision.
package registry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/image"
	"github.com/aras-services/native-gateway/pkg/sdk"
)

// SwapResult is the immediate return of swap/swap_graceful.
type SwapResult struct {
	Swapped    bool
	OldInFlight uint64
	Draining   bool
}

// Stats is the point-in-time snapshot stats() returns.
type Stats struct {
	Loaded            int
	Draining          int
	ActiveRequests    uint64
	DrainingRequests  uint64
}

type retiredImage struct {
	img *image.Image
}

// Registry is the Handler Registry (C2).
type Registry struct {
	mu      sync.RWMutex
	active  map[string]*image.Image
	retired []*retiredImage

	logger *zap.Logger
}

func New(logger *zap.Logger) *Registry {
	return &Registry{
		active: make(map[string]*image.Image),
		logger: logger,
	}
}

// Load opens the library at artifactPath and publishes it as active[id].
func (r *Registry) Load(id, artifactPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[id]; exists {
		return domain.ErrAlreadyLoaded
	}

	img, err := image.Load(id, artifactPath)
	if err != nil {
		return err
	}
	r.active[id] = img
	return nil
}

// Swap replaces active[id] immediately: the old image is retired with an
// infinite drain deadline (deadline == nil). No in-flight request is
// dropped.
func (r *Registry) Swap(id, newArtifactPath string) (SwapResult, error) {
	return r.swap(id, newArtifactPath, nil)
}

// SwapGraceful is Swap with a finite drain deadline.
func (r *Registry) SwapGraceful(id, newArtifactPath string, deadline time.Duration) (SwapResult, error) {
	return r.swap(id, newArtifactPath, &deadline)
}

func (r *Registry) swap(id, newArtifactPath string, deadline *time.Duration) (SwapResult, error) {
	newImg, err := image.Load(id, newArtifactPath)
	if err != nil {
		return SwapResult{}, err
	}

	r.mu.Lock()
	old, hadOld := r.active[id]
	r.active[id] = newImg
	if hadOld {
		old.BeginDrain()
		r.retired = append(r.retired, &retiredImage{img: old})
	}
	r.mu.Unlock()

	var oldInFlight uint64
	if hadOld {
		oldInFlight = old.ActiveCount()
		spawnWatchdog(old, deadline, r, r.logger)
	}

	return SwapResult{Swapped: true, OldInFlight: oldInFlight, Draining: hadOld}, nil
}

// Execute looks up active[id], acquires a guard, invokes the image, and
// releases the guard on every return path.
func (r *Registry) Execute(ctx context.Context, id string, hctx sdk.Context, req domain.Request, hostCallback uintptr) (domain.Response, error) {
	return r.executeWithTimeout(ctx, id, hctx, req, hostCallback, 0)
}

// ExecuteWithTimeout is Execute but reports HandlerTimeout if the handler
// does not complete within d. The guard is held until the handler
// actually completes — timing out does not cancel it (spec §5).
func (r *Registry) ExecuteWithTimeout(ctx context.Context, id string, hctx sdk.Context, req domain.Request, hostCallback uintptr, d time.Duration) (domain.Response, error) {
	return r.executeWithTimeout(ctx, id, hctx, req, hostCallback, d)
}

func (r *Registry) executeWithTimeout(ctx context.Context, id string, hctx sdk.Context, req domain.Request, hostCallback uintptr, d time.Duration) (domain.Response, error) {
	r.mu.RLock()
	img, exists := r.active[id]
	r.mu.RUnlock()
	if !exists {
		return domain.Response{}, domain.ErrNotLoaded
	}

	guard := img.Acquire()
	if guard == nil {
		return domain.Response{}, domain.ErrDraining
	}
	defer guard.Release()

	if d <= 0 {
		return img.Execute(ctx, hctx, req, hostCallback)
	}

	type result struct {
		resp domain.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := img.Execute(ctx, hctx, req, hostCallback)
		done <- result{resp, err}
	}()

	select {
	case res := <-done:
		return res.resp, res.err
	case <-time.After(d):
		return domain.Response{}, domain.ErrHandlerTimeout
	}
}

// Unload retires active[id] and marks it draining. It returns at once with
// a channel that is closed once the image has drained and been closed;
// callers may wait on it or let the watchdog unload asynchronously.
func (r *Registry) Unload(id string) (<-chan struct{}, error) {
	r.mu.Lock()
	img, exists := r.active[id]
	if !exists {
		r.mu.Unlock()
		return nil, domain.ErrNotLoaded
	}
	delete(r.active, id)
	img.BeginDrain()
	r.retired = append(r.retired, &retiredImage{img: img})
	r.mu.Unlock()

	return spawnWatchdog(img, nil, r, r.logger), nil
}

// CleanupDrained sweeps retired, closing and removing every drained
// entry. Intended for periodic invocation; the watchdog already does this
// per-image, so in steady state this finds nothing.
func (r *Registry) CleanupDrained() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.retired[:0]
	removed := 0
	for _, ri := range r.retired {
		if ri.img.IsDrained() {
			ri.img.Close()
			removed++
			continue
		}
		kept = append(kept, ri)
	}
	r.retired = kept
	return removed
}

// Stats is a non-transactional snapshot across images.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{Loaded: len(r.active), Draining: len(r.retired)}
	for _, img := range r.active {
		s.ActiveRequests += img.ActiveCount()
	}
	for _, ri := range r.retired {
		s.DrainingRequests += ri.img.ActiveCount()
	}
	return s
}

// removeRetired is called by the watchdog once an image is gone (drained
// or forced) to drop it from the retired slice.
func (r *Registry) removeRetired(img *image.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, ri := range r.retired {
		if ri.img == img {
			r.retired = append(r.retired[:i], r.retired[i+1:]...)
			return
		}
	}
}
