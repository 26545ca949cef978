package pow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmrelay/relaynode/pkg/object"
	"github.com/bmrelay/relaynode/pkg/objstore"
)

func TestSearchProducesValidObject(t *testing.T) {
	now := time.Now()
	draft := &object.Object{
		ExpiresTime:  uint64(now.Add(2 * time.Hour).Unix()),
		ObjectType:   object.I2PDestinationObjectType,
		Version:      object.I2PDestinationObjectVersion,
		StreamNumber: object.Stream,
		Payload:      []byte("a small test payload"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := Search(ctx, draft, now, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Object)
	assert.NoError(t, result.Object.IsValid(now))
}

func TestPublisherInsertsAndAdvertises(t *testing.T) {
	now := time.Now()
	store := objstore.New()
	var advertised []object.Vector
	pub := NewPublisher(store, func(v object.Vector) { advertised = append(advertised, v) }, nil)

	draft := &object.Object{
		ExpiresTime:  uint64(now.Add(time.Hour).Unix()),
		ObjectType:   1,
		Version:      1,
		StreamNumber: object.Stream,
		Payload:      []byte("x"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	v, err := pub.PublishAndWait(ctx, draft)
	require.NoError(t, err)
	assert.True(t, store.Has(v))
	assert.Contains(t, advertised, v)
}
