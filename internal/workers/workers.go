package workers

import (
	"context"
	"log"
	"time"

	"bikeToWorkAPI/internal/errtrack"
)

type ChallengeResolver interface {
	ResolveEnded(ctx context.Context) (int, error)
}

// StartChallengeResolver completes ended challenges once at start and then
// on every tick until ctx is cancelled. The returned channel closes when the
// loop has exited.
func StartChallengeResolver(ctx context.Context, resolver ChallengeResolver, every time.Duration) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(every)

	go func() {
		defer close(done)
		defer ticker.Stop()

		resolveEnded(ctx, resolver)
		for {
			select {
			case <-ticker.C:
				resolveEnded(ctx, resolver)
			case <-ctx.Done():
				return
			}
		}
	}()

	return done
}

func resolveEnded(ctx context.Context, resolver ChallengeResolver) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	n, err := resolver.ResolveEnded(runCtx)
	if err != nil {
		log.Printf("Error resolving ended challenges: %v", err)
		errtrack.CaptureException(err, map[string]any{"worker": "challenge_resolver"})
		return
	}
	if n > 0 {
		log.Printf("Resolved %d ended challenges", n)
	}
}
