package events

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
	"github.com/dd0wney/cluso-louvain/pkg/metrics"
)

var inprocSeq atomic.Int64

func inprocURL() string {
	return fmt.Sprintf("inproc://louvain-events-%d", inprocSeq.Add(1))
}

func TestFrameRoundTrip(t *testing.T) {
	ev := Event{
		Topic: TopicLevel,
		RunID: "abc",
		Time:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Level: &algorithms.LouvainLevel{Level: 1, Modularity: 0.5, Membership: []int{0, 0, 1}},
	}

	frame, err := EncodeFrame(ev)
	require.NoError(t, err)
	assert.Equal(t, "level|", string(frame[:6]))

	got, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
}

func TestDecodeFrame_Malformed(t *testing.T) {
	for _, frame := range []string{
		"no separator",
		"level|{not json",
		`run|{"topic":"level"}`,
	} {
		_, err := DecodeFrame([]byte(frame))
		assert.ErrorIs(t, err, ErrMalformedFrame, frame)
	}
}

// recvWithRetry republishes until the subscriber has joined and received.
func recvWithRetry(t *testing.T, sub *Subscriber, publish func()) Event {
	t.Helper()
	require.NoError(t, sub.SetRecvDeadline(50*time.Millisecond))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		publish()
		ev, err := sub.Recv()
		if err == nil {
			return ev
		}
	}
	t.Fatal("no event received")
	return Event{}
}

func TestPublisherSubscriber(t *testing.T) {
	url := inprocURL()
	reg := metrics.NewRegistry()

	pub, err := NewPublisher(url, nil, reg)
	require.NoError(t, err)
	defer pub.Close()

	sub, err := NewSubscriber(url, TopicRun)
	require.NoError(t, err)
	defer sub.Close()

	ev := recvWithRetry(t, sub, func() {
		require.NoError(t, pub.Publish(Event{Topic: TopicLevel, RunID: "filtered"}))
		require.NoError(t, pub.Publish(Event{Topic: TopicRun, RunID: "wanted"}))
	})

	assert.Equal(t, TopicRun, ev.Topic)
	assert.Equal(t, "wanted", ev.RunID)
}

func TestPublisher_ForwardFromBus(t *testing.T) {
	url := inprocURL()
	bus := NewBus()
	defer bus.Shutdown()

	pub, err := NewPublisher(url, nil, nil)
	require.NoError(t, err)
	require.NoError(t, pub.Forward(bus, TopicLevel, TopicRun))
	assert.Error(t, pub.Forward(bus, TopicLevel))

	sub, err := NewSubscriber(url)
	require.NoError(t, err)
	defer sub.Close()

	ev := recvWithRetry(t, sub, func() {
		bus.Publish(Event{Topic: TopicLevel, RunID: "via-bus"})
	})
	assert.Equal(t, "via-bus", ev.RunID)

	require.NoError(t, pub.Close())
	assert.Equal(t, 0, bus.SubscriberCount(TopicLevel))
}

func TestNewPublisher_BadURL(t *testing.T) {
	_, err := NewPublisher("bogus://nowhere", nil, nil)
	assert.Error(t, err)
}
