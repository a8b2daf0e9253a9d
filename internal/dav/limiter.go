package dav

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// burstMultiplier controls the token bucket burst size relative to the
// per-second rate. A 2x burst lets short savings be spent on the next
// read/write without reducing sustained throughput below the limit.
const burstMultiplier = 2

// newLimiter builds a token bucket for the given bytes/sec rate, or nil for
// unlimited. One limiter per direction is shared by all transfers on a
// client, so aggregate throughput stays within the configured speed.
func newLimiter(bytesPerSec int64) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Limit(bytesPerSec), int(bytesPerSec)*burstMultiplier)
}

// limitReader wraps r with token bucket rate limiting. A nil limiter
// returns r unchanged.
func limitReader(ctx context.Context, limiter *rate.Limiter, r io.Reader) io.Reader {
	if limiter == nil {
		return r
	}

	return &limitedReader{r: r, limiter: limiter, ctx: ctx}
}

type limitedReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	n, err := lr.r.Read(p)
	if n > 0 {
		if waitErr := waitN(lr.ctx, lr.limiter, n); waitErr != nil {
			return n, waitErr
		}
	}

	return n, err
}

// waitN splits a large token request into burst-sized chunks, since
// rate.Limiter.WaitN rejects requests exceeding the burst size.
func waitN(ctx context.Context, limiter *rate.Limiter, n int) error {
	burst := limiter.Burst()

	for n > 0 {
		take := n
		if take > burst {
			take = burst
		}

		if err := limiter.WaitN(ctx, take); err != nil {
			return err
		}

		n -= take
	}

	return nil
}
