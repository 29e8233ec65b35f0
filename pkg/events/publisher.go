package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/cluso-louvain/pkg/logging"
	"github.com/dd0wney/cluso-louvain/pkg/metrics"
)

// Frames are "<topic>|<json event>" so SUB sockets can filter by topic prefix.
const frameSeparator = '|'

// ErrMalformedFrame is returned for frames without a topic separator.
var ErrMalformedFrame = errors.New("malformed event frame")

// EncodeFrame serializes ev as a wire frame.
func EncodeFrame(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	frame := make([]byte, 0, len(ev.Topic)+1+len(data))
	frame = append(frame, ev.Topic...)
	frame = append(frame, frameSeparator)
	return append(frame, data...), nil
}

// DecodeFrame parses a wire frame.
func DecodeFrame(frame []byte) (Event, error) {
	i := bytes.IndexByte(frame, frameSeparator)
	if i < 0 {
		return Event{}, ErrMalformedFrame
	}
	var ev Event
	if err := json.Unmarshal(frame[i+1:], &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	if ev.Topic != string(frame[:i]) {
		return Event{}, fmt.Errorf("%w: topic %q does not match payload topic %q", ErrMalformedFrame, frame[:i], ev.Topic)
	}
	return ev, nil
}

// Publisher sends events on a mangos PUB socket.
type Publisher struct {
	sock    mangos.Socket
	logger  logging.Logger
	metrics *metrics.Registry

	mu      sync.Mutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started bool
}

// NewPublisher listens on url, e.g. tcp://127.0.0.1:40899 or inproc://louvain.
// reg may be nil.
func NewPublisher(url string, logger logging.Logger, reg *metrics.Registry) (*Publisher, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if err := sock.Listen(url); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", url, err)
	}

	logger = logger.With(logging.Component("events"))
	logger.Info("event publisher listening", logging.String("url", url))

	return &Publisher{
		sock:    sock,
		logger:  logger,
		metrics: reg,
	}, nil
}

// Publish sends one event.
func (p *Publisher) Publish(ev Event) error {
	frame, err := EncodeFrame(ev)
	if err != nil {
		return err
	}
	if err := p.sock.Send(frame); err != nil {
		return fmt.Errorf("failed to send %s event: %w", ev.Topic, err)
	}
	if p.metrics != nil {
		p.metrics.RecordEventPublished(ev.Topic)
	}
	return nil
}

// Forward relays every event published on bus under topics to the socket
// until Close.
func (p *Publisher) Forward(bus *Bus, topics ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.New("publisher already forwarding")
	}

	ctx, cancel := context.WithCancel(context.Background())
	subs := make([]*Subscription, 0, len(topics))
	for _, topic := range topics {
		s, err := bus.Subscribe(ctx, topic)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
		subs = append(subs, s)
	}

	p.cancel = cancel
	p.started = true
	for _, s := range subs {
		p.wg.Add(1)
		go p.relay(s)
	}
	return nil
}

func (p *Publisher) relay(s *Subscription) {
	defer p.wg.Done()
	for ev := range s.Channel() {
		if err := p.Publish(ev); err != nil {
			p.logger.Warn("event dropped", logging.String("topic", ev.Topic), logging.Error(err))
		}
	}
}

// Close stops forwarding and closes the socket. Events already delivered to
// the relay are sent first.
func (p *Publisher) Close() error {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	return p.sock.Close()
}

// Subscriber receives events from a Publisher.
type Subscriber struct {
	sock mangos.Socket
}

// NewSubscriber dials url and subscribes to topics, or to everything when
// no topics are given.
func NewSubscriber(url string, topics ...string) (*Subscriber, error) {
	sock, err := sub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}
	if err := sock.Dial(url); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	if len(topics) == 0 {
		topics = []string{""}
	}
	for _, topic := range topics {
		prefix := []byte(topic)
		if topic != "" {
			prefix = append(prefix, frameSeparator)
		}
		if err := sock.SetOption(mangos.OptionSubscribe, prefix); err != nil {
			sock.Close()
			return nil, fmt.Errorf("failed to subscribe to %q: %w", topic, err)
		}
	}

	return &Subscriber{sock: sock}, nil
}

// SetRecvDeadline bounds each Recv call.
func (s *Subscriber) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionRecvDeadline, d)
}

// Recv blocks for the next event.
func (s *Subscriber) Recv() (Event, error) {
	frame, err := s.sock.Recv()
	if err != nil {
		return Event{}, err
	}
	return DecodeFrame(frame)
}

func (s *Subscriber) Close() error {
	return s.sock.Close()
}
