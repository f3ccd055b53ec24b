package service

import (
	"context"
	"sync"
)

// Subscription is a live query. The callback runs on one goroutine, once
// with the initial result and again after every relevant change, until
// Cancel is called or the parent context ends.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Cancel stops delivery and waits for an in-flight callback to return.
// Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once no more callbacks will run.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

type changeSource func(ctx context.Context) (<-chan struct{}, error)

func subscribe[T any](
	parent context.Context,
	watch changeSource,
	fetch func(ctx context.Context) (T, error),
	deliver func(T),
	onError func(error),
) (*Subscription, error) {
	ctx, cancel := context.WithCancel(parent)

	// Watch before the first fetch so no change between them is missed
	changes, err := watch(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		defer cancel()

		push := func() {
			result, err := fetch(ctx)
			if err != nil {
				if ctx.Err() == nil {
					onError(err)
				}
				return
			}
			if ctx.Err() == nil {
				deliver(result)
			}
		}

		push()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				push()
			}
		}
	}()

	return sub, nil
}
