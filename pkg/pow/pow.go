// Package pow implements the nonce search used when this node publishes
// an Object of its own: given a draft Object (nonce still zero), find a
// nonce whose trial hash meets the Object's PoW target, then hand back a
// finalized, storable Object. Per §9 "Subprocess PoW", the search is
// offloaded from I/O goroutines onto a worker pool so hashing never
// stalls a Connection's read/write loop; unlike the Python original's
// separate OS process, a Go goroutine pool already gets that isolation
// without the IPC overhead.
package pow

import (
	"context"
	"crypto/sha512"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/bmrelay/relaynode/pkg/object"
)

// Result is the outcome of a completed search: a copy of the draft with
// the winning nonce already set, and how long the search took.
type Result struct {
	Object   *object.Object
	Duration time.Duration
}

// Search runs NumCPU workers racing a shared atomic nonce cursor until
// one finds a trial at or below draft's PoW target, or ctx is canceled.
// draft.Nonce is ignored and draft itself is not modified; the nonce
// found is set on the Result's Object.
func Search(ctx context.Context, draft *object.Object, now time.Time, log *zap.SugaredLogger) (*Result, error) {
	start := time.Now()

	cleared := *draft
	cleared.Nonce = [8]byte{}
	data, err := cleared.ToBytes()
	if err != nil {
		return nil, err
	}
	data = data[8:]

	target, err := object.PowTarget(len(data)+8, expiryDelta(draft, now))
	if err != nil {
		return nil, err
	}
	initialHash := object.InitialHash(data)

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	if log != nil {
		log.Debugw("pow: starting search", "target", target, "workers", workers)
	}

	var cursor uint64
	var found uint64
	var foundOK int32
	done := make(chan struct{})
	var once sync.Once

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			const batch = 4096
			for {
				select {
				case <-done:
					return
				case <-ctx.Done():
					return
				default:
				}
				base := atomic.AddUint64(&cursor, batch) - batch
				for n := base; n < base+batch; n++ {
					if n == 0 {
						continue
					}
					var nonce [8]byte
					putBE64(nonce[:], n)
					if trialFromInitial(nonce, initialHash) <= target {
						if atomic.CompareAndSwapInt32(&foundOK, 0, 1) {
							found = n
							once.Do(func() { close(done) })
						}
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&foundOK) == 0 {
		return nil, ctx.Err()
	}

	out := cleared
	putBE64(out.Nonce[:], found)
	if log != nil {
		log.Debugw("pow: search complete", "nonce", found, "elapsed", time.Since(start))
	}
	return &Result{Object: &out, Duration: time.Since(start)}, nil
}

func expiryDelta(o *object.Object, now time.Time) time.Duration {
	dt := time.Unix(int64(o.ExpiresTime), 0).Sub(now)
	if dt < 0 {
		dt = 0
	}
	return dt
}

// trialFromInitial computes be_u64(SHA512(SHA512(nonce||initialHash))[:8]),
// reusing the object body's hash across every attempt instead of
// rehashing the whole payload per nonce the way object.PowTrial does for
// a single one-shot check.
func trialFromInitial(nonce [8]byte, initialHash [64]byte) uint64 {
	var prefixed [8 + 64]byte
	copy(prefixed[:8], nonce[:])
	copy(prefixed[8:], initialHash[:])
	inner := sha512.Sum512(prefixed[:])
	outer := sha512.Sum512(inner[:])
	var v uint64
	for _, b := range outer[:8] {
		v = v<<8 | uint64(b)
	}
	return v
}

func putBE64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
