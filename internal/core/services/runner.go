package services

import "sync"

// keyedRunner runs functions on goroutines. Functions submitted under the
// same key run one after another in submission order; different keys run
// concurrently.
type keyedRunner struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
	wg    sync.WaitGroup
}

func newKeyedRunner() *keyedRunner {
	return &keyedRunner{tails: make(map[string]chan struct{})}
}

// Go schedules fn after every earlier function with the same key.
func (r *keyedRunner) Go(key string, fn func()) {
	r.mu.Lock()
	prev := r.tails[key]
	done := make(chan struct{})
	r.tails[key] = done
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer func() {
			close(done)
			r.mu.Lock()
			if r.tails[key] == done {
				delete(r.tails, key)
			}
			r.mu.Unlock()
		}()
		if prev != nil {
			<-prev
		}
		fn()
	}()
}

// Wait blocks until every scheduled function has returned.
func (r *keyedRunner) Wait() {
	r.wg.Wait()
}
