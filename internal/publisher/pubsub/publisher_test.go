package pubsub

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type event struct {
	Department string `json:"department"`
	Status     string `json:"status"`
}

func (e event) Attributes() map[string]string {
	return map[string]string{"status": e.Status}
}

func newClient(t *testing.T) *pubsub.Client {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "project-id", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPublishDeliversJSONWithAttributes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client := newClient(t)

	topic, err := client.CreateTopic(ctx, "syllabus-runs")
	require.NoError(t, err)
	sub, err := client.CreateSubscription(ctx, "runs-sub", pubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	pub, err := Open(ctx, client, "syllabus-runs")
	require.NoError(t, err)
	defer pub.Close()

	id, err := pub.Publish(ctx, "ignored", event{Department: "SILS", Status: "finished"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	received := make(chan *pubsub.Message, 1)
	rctx, rcancel := context.WithCancel(ctx)
	defer rcancel()
	go func() {
		_ = sub.Receive(rctx, func(_ context.Context, msg *pubsub.Message) {
			msg.Ack()
			select {
			case received <- msg:
			default:
			}
			rcancel()
		})
	}()

	select {
	case msg := <-received:
		assert.JSONEq(t, `{"department":"SILS","status":"finished"}`, string(msg.Data))
		assert.Equal(t, "finished", msg.Attributes["status"])
	case <-ctx.Done():
		t.Fatal("message not received")
	}
}

func TestOpenMissingTopic(t *testing.T) {
	client := newClient(t)
	_, err := Open(context.Background(), client, "absent")
	require.ErrorContains(t, err, "does not exist")

	_, err = Open(context.Background(), nil, "absent")
	require.Error(t, err)
}

func TestPublishUnconfigured(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Publish(context.Background(), "t", "payload")
	require.Error(t, err)
}

func TestPubsubCarrier(t *testing.T) {
	t.Parallel()

	c := &pubsubCarrier{attrs: map[string]string{}}
	c.Set("traceparent", "00-abc")
	assert.Equal(t, "00-abc", c.Get("traceparent"))
	assert.Equal(t, []string{"traceparent"}, c.Keys())
}
