package registry

import (
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/aras-services/native-gateway/internal/image"
)

const (
	backoffFloor   = 100 * time.Millisecond
	backoffCeiling = 1 * time.Second
)

// spawnWatchdog starts the drain-watchdog task for a retired image: it
// polls IsDrained with bounded exponential backoff until either the image
// drains naturally or deadline elapses, then closes the library. A nil
// deadline means wait indefinitely (spec's non-graceful Swap). Returns a
// channel closed once the image has actually been closed.
func spawnWatchdog(img *image.Image, deadline *time.Duration, reg *Registry, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	var wg conc.WaitGroup
	wg.Go(func() {
		defer close(done)
		watch(img, deadline, reg, logger)
	})
	go func() {
		if r := wg.WaitAndRecover(); r != nil {
			logger.Error("drain watchdog panic",
				zap.String("endpoint_id", img.ID()),
				zap.Any("panic", r.Value),
			)
		}
	}()
	return done
}

func watch(img *image.Image, deadline *time.Duration, reg *Registry, logger *zap.Logger) {
	var deadlineAt time.Time
	hasDeadline := deadline != nil
	if hasDeadline {
		deadlineAt = time.Now().Add(*deadline)
	}

	backoff := backoffFloor
	for {
		if img.IsDrained() {
			img.Close()
			reg.removeRetired(img)
			return
		}
		if hasDeadline && time.Now().After(deadlineAt) {
			inFlight := img.ActiveCount()
			img.Close()
			reg.removeRetired(img)
			logger.Error("forced unload on drain deadline",
				zap.String("endpoint_id", img.ID()),
				zap.Uint64("in_flight", inFlight),
			)
			return
		}

		time.Sleep(backoff)
		backoff *= 2
		if backoff > backoffCeiling {
			backoff = backoffCeiling
		}
	}
}
