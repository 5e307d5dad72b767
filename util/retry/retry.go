package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/Khan/genqlient/graphql"
)

var (
	DefaultRetry = Retry{Base: 4, Cap: 64, Tries: 12}
	// InteractiveRetry keeps the total wait short enough for a person waiting on the result
	InteractiveRetry = Retry{Base: 1, Cap: 4, Tries: 3, Unit: 500 * time.Millisecond}
	ErrOutOfRetries  = errors.New("tried too many times")
)

type Retry struct {
	Base  int           // Min amount of time to sleep per iteration
	Cap   int           // Max amount of time to sleep per iteration
	Tries int           // Number of times to retry
	Unit  time.Duration // Unit of Base and Cap, defaults to a second
}

// Sleep waits for a jittered, exponentially growing interval or until ctx is done
func (r Retry) Sleep(ctx context.Context, i int) error {
	unit := r.Unit
	if unit == 0 {
		unit = time.Second
	}

	// powerInt returns the base-x exponential of y.
	powerInt := func(x, y int) int {
		ret := 1
		for i := 0; i < y; i++ {
			ret *= x
		}
		return ret
	}

	// minInt returns the minimum of two ints.
	minInt := func(x, y int) int {
		if x < y {
			return x
		}
		return y
	}

	upper := minInt(r.Cap, r.Base*powerInt(2, i))
	if upper <= 0 {
		return nil
	}

	t := time.NewTimer(time.Duration(rand.Intn(upper)) * unit)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsRateLimited reports whether err carries a 429 response from the GraphQL API
func IsRateLimited(err error) bool {
	var httpErr *graphql.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests
}

func RetryFunc(ctx context.Context, f func(ctx context.Context) error, shouldRetry func(error) bool, r Retry) error {
	var err error
	for i := 0; i < r.Tries; i++ {
		err = f(ctx)
		if err == nil {
			return nil
		}

		if !shouldRetry(err) {
			return err
		}

		if sleepErr := r.Sleep(ctx, i); sleepErr != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrOutOfRetries, err)
}
