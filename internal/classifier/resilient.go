package classifier

import (
	"context"
	"time"

	"github.com/sells-group/journey-mapper/internal/mapping"
	"github.com/sells-group/journey-mapper/internal/resilience"
)

// Resilient wraps a classifier with a per-attempt timeout, retries, and a
// circuit breaker. While the circuit is open calls fail fast with
// resilience.ErrCircuitOpen.
type Resilient struct {
	next    mapping.Classifier
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	timeout time.Duration
}

// NewResilient wraps next. A zero timeout leaves attempts unbounded.
func NewResilient(next mapping.Classifier, retry resilience.RetryConfig, breaker *resilience.CircuitBreaker, timeout time.Duration) *Resilient {
	retry.OnRetry = resilience.RetryLogger("classifier", "classify")
	return &Resilient{next: next, retry: retry, breaker: breaker, timeout: timeout}
}

func (r *Resilient) Classify(ctx context.Context, req mapping.Request) (string, error) {
	return resilience.DoVal(ctx, r.retry, func(ctx context.Context) (string, error) {
		return resilience.ExecuteVal(ctx, r.breaker, func(ctx context.Context) (string, error) {
			if r.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, r.timeout)
				defer cancel()
			}
			return r.next.Classify(ctx, req)
		})
	})
}
