package pow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bmrelay/relaynode/pkg/object"
	"github.com/bmrelay/relaynode/pkg/objstore"
)

// Publisher runs PoW searches in the background and inserts the result
// into the shared store, enqueuing the vector for advertisement. It is
// the component behind a locally originated publish: the self-published
// I2P destination object (republished hourly by the manager) and any
// future user-triggered publish both go through here.
type Publisher struct {
	store     *objstore.Store
	onPublish func(object.Vector)
	log       *zap.SugaredLogger
}

func NewPublisher(store *objstore.Store, onPublish func(object.Vector), log *zap.SugaredLogger) *Publisher {
	return &Publisher{store: store, onPublish: onPublish, log: log}
}

// Publish mines draft in the background and, on success, stores and
// advertises the finalized object. It returns immediately; callers that
// need to observe completion should use PublishAndWait.
func (p *Publisher) Publish(ctx context.Context, draft *object.Object) {
	go func() {
		if _, err := p.PublishAndWait(ctx, draft); err != nil && p.log != nil {
			p.log.Warnw("pow: publish failed", "error", err)
		}
	}()
}

// PublishAndWait mines draft and blocks until the object is stored and
// enqueued, or ctx is canceled.
func (p *Publisher) PublishAndWait(ctx context.Context, draft *object.Object) (object.Vector, error) {
	result, err := Search(ctx, draft, time.Now(), p.log)
	if err != nil {
		return object.Vector{}, err
	}
	v, inserted, err := p.store.InsertIfAbsentAndValid(result.Object)
	if err != nil {
		return object.Vector{}, err
	}
	if inserted && p.onPublish != nil {
		p.onPublish(v)
	}
	return v, nil
}
