package prover

import (
	"errors"
	"sync"
	"time"

	"github.com/zkble-protocol/zkble-go/pkg/transport"
)

// Link errors.
var (
	ErrLinkClosed = errors.New("link closed")
)

// Link is an in-memory transport.Channel to a Device. Every Send is one
// command; responses are delivered as chunked notifications from a single
// goroutine in order.
type Link struct {
	dev *Device

	mu      sync.Mutex
	subs    map[uint64]func([]byte)
	nextID  uint64
	closed  bool
	sendErr map[byte]error

	queue chan []byte
	stop  chan struct{}
	done  chan struct{}
}

// NewLink connects to dev.
func NewLink(dev *Device) *Link {
	l := &Link{
		dev:     dev,
		subs:    make(map[uint64]func([]byte)),
		sendErr: make(map[byte]error),
		queue:   make(chan []byte, 16),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.deliverLoop()
	return l
}

// FailSend makes Send return err for commands starting with code.
func (l *Link) FailSend(code byte, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendErr[code] = err
}

// Send passes cmd to the device and queues its response.
func (l *Link) Send(cmd []byte) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLinkClosed
	}
	if len(cmd) > 0 {
		if err := l.sendErr[cmd[0]]; err != nil {
			l.mu.Unlock()
			return err
		}
	}
	l.mu.Unlock()

	resp, err := l.dev.Respond(cmd)
	if err != nil {
		return err
	}
	if len(resp) == 0 {
		return nil
	}

	select {
	case l.queue <- resp:
		return nil
	case <-l.stop:
		return ErrLinkClosed
	}
}

// OnNotification subscribes fn to notifications.
func (l *Link) OnNotification(fn func([]byte)) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// Subscribers returns the number of active subscriptions.
func (l *Link) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

// Disconnect stops delivery. Pending notifications are dropped.
func (l *Link) Disconnect() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	close(l.stop)
	<-l.done
	return nil
}

// Closed reports whether Disconnect was called.
func (l *Link) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Link) deliverLoop() {
	defer close(l.done)

	cfg := l.dev.Config()
	for {
		select {
		case resp := <-l.queue:
			for _, chunk := range Chunk(resp, cfg.ChunkSize) {
				if cfg.ChunkDelay > 0 {
					select {
					case <-time.After(cfg.ChunkDelay):
					case <-l.stop:
						return
					}
				}
				l.notify(chunk)
			}
		case <-l.stop:
			return
		}
	}
}

func (l *Link) notify(chunk []byte) {
	l.mu.Lock()
	fns := make([]func([]byte), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	data := append([]byte(nil), chunk...)
	for _, fn := range fns {
		fn(data)
	}
}

var _ transport.Channel = (*Link)(nil)
