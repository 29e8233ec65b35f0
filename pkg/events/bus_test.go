package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
)

// TestBus_PublishSubscribe tests basic publish/subscribe functionality
func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Shutdown()

	sub, err := bus.Subscribe(context.Background(), TopicRun)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	bus.Publish(Event{Topic: TopicRun, RunID: "r1"})

	select {
	case ev := <-sub.Channel():
		if ev.RunID != "r1" {
			t.Errorf("Expected run r1, got %q", ev.RunID)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for event")
	}
}

// TestBus_TopicIsolation tests that events only reach their topic
func TestBus_TopicIsolation(t *testing.T) {
	bus := NewBus()
	defer bus.Shutdown()

	sub, err := bus.Subscribe(context.Background(), TopicLevel)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	bus.Publish(Event{Topic: TopicRun})

	select {
	case ev := <-sub.Channel():
		t.Errorf("Unexpected event on level topic: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestBus_MultipleSubscribers tests fan-out to every subscriber
func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Shutdown()

	const n = 5
	subs := make([]*Subscription, n)
	for i := range subs {
		sub, err := bus.Subscribe(context.Background(), TopicLevel)
		if err != nil {
			t.Fatalf("Failed to subscribe %d: %v", i, err)
		}
		subs[i] = sub
	}
	if got := bus.SubscriberCount(TopicLevel); got != n {
		t.Fatalf("Expected %d subscribers, got %d", n, got)
	}

	bus.Publish(Event{Topic: TopicLevel, RunID: "fan"})

	for i, sub := range subs {
		select {
		case ev := <-sub.Channel():
			if ev.RunID != "fan" {
				t.Errorf("Subscriber %d got %+v", i, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("Subscriber %d timed out", i)
		}
	}
}

// TestBus_ContextCancel tests that cancelling the context unsubscribes
func TestBus_ContextCancel(t *testing.T) {
	bus := NewBus()
	defer bus.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := bus.Subscribe(ctx, TopicRun)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	cancel()

	select {
	case _, ok := <-sub.Channel():
		if ok {
			t.Error("Expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("Channel not closed after cancel")
	}
	if got := bus.SubscriberCount(TopicRun); got != 0 {
		t.Errorf("Expected 0 subscribers, got %d", got)
	}
}

// TestBus_Shutdown tests shutdown closes subscriptions and rejects new ones
func TestBus_Shutdown(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(context.Background(), TopicRun)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	bus.Shutdown()
	bus.Shutdown()

	if _, ok := <-sub.Channel(); ok {
		t.Error("Expected closed channel after shutdown")
	}
	if _, err := bus.Subscribe(context.Background(), TopicRun); err != ErrBusClosed {
		t.Errorf("Expected ErrBusClosed, got %v", err)
	}

	// Publishing after shutdown is a no-op
	bus.Publish(Event{Topic: TopicRun})
}

// TestBus_SlowSubscriberDrops tests that a full subscriber does not block publishers
func TestBus_SlowSubscriberDrops(t *testing.T) {
	bus := NewBus()
	defer bus.Shutdown()

	sub, err := bus.Subscribe(context.Background(), TopicLevel)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < SubscriptionBuffer*3; i++ {
			bus.Publish(Event{Topic: TopicLevel})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if got := len(sub.Channel()); got != SubscriptionBuffer {
		t.Errorf("Expected %d buffered events, got %d", SubscriptionBuffer, got)
	}
}

// TestBus_ConcurrentPublish tests concurrent publishers and unsubscribers
func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()
	defer bus.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(Event{Topic: TopicLevel})
			}
		}()
		go func() {
			defer wg.Done()
			sub, err := bus.Subscribe(context.Background(), TopicLevel)
			if err != nil {
				return
			}
			sub.Unsubscribe()
		}()
	}
	wg.Wait()
}

// TestObserver tests level and run events produced from a clustering run
func TestObserver(t *testing.T) {
	bus := NewBus()
	defer bus.Shutdown()

	levels, _ := bus.Subscribe(context.Background(), TopicLevel)
	runs, _ := bus.Subscribe(context.Background(), TopicRun)

	g, err := algorithms.NewWeightedGraph(6, []algorithms.Edge{
		{From: 0, To: 1, Weight: 1}, {From: 1, To: 2, Weight: 1}, {From: 2, To: 0, Weight: 1},
		{From: 3, To: 4, Weight: 1}, {From: 4, To: 5, Weight: 1}, {From: 5, To: 3, Weight: 1},
	})
	if err != nil {
		t.Fatalf("NewWeightedGraph failed: %v", err)
	}

	opts := algorithms.DefaultLouvainOptions()
	opts.Observer = Observer(bus, "run-7")
	result, err := algorithms.ClusterWithOptions(g, opts)
	PublishRun(bus, "run-7", result, err)

	for i := range result.Levels {
		ev := <-levels.Channel()
		if ev.RunID != "run-7" || ev.Level == nil || ev.Level.Level != i {
			t.Errorf("level event %d = %+v", i, ev)
		}
	}

	ev := <-runs.Channel()
	if ev.Run == nil || ev.Run.Status != "success" || ev.Run.Levels != len(result.Levels) {
		t.Errorf("run event = %+v", ev)
	}

	PublishRun(bus, "run-8", nil, algorithms.ErrUndefinedModularity)
	ev = <-runs.Channel()
	if ev.Run.Status != algorithms.KindUndefinedModularity || ev.Run.Error == "" {
		t.Errorf("failed run event = %+v", ev.Run)
	}
}
