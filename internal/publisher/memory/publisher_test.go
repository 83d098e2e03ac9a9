package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "syllabus-runs", map[string]string{"status": "started"})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "syllabus-runs", "finished")
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "finished", msgs[1].Payload)

	msgs[0].Topic = "modified"
	assert.Equal(t, "syllabus-runs", pub.Messages()[0].Topic, "Messages returns a copy")
}

func TestPublisherFailure(t *testing.T) {
	t.Parallel()

	pub := New()
	pub.Err = errors.New("broker down")
	_, err := pub.Publish(context.Background(), "t", "x")
	require.Error(t, err)
	assert.Empty(t, pub.Messages())
}

type routed struct{ dept string }

func (r routed) Attributes() map[string]string { return map[string]string{"department": r.dept} }

func TestPublisherCapturesAttributes(t *testing.T) {
	t.Parallel()

	pub := New()
	id, err := pub.Publish(context.Background(), "syllabus-runs", routed{dept: "SILS"})
	require.NoError(t, err)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, map[string]string{"department": "SILS"}, msgs[0].Attributes)
}
