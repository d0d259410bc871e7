package input

import (
	"errors"
	"fmt"
	"sync"

	"github.com/offlinefirst/input-replay/pkg/events"
)

// Notification is one raw observation from a capture backend. It is also the
// JSON-lines shape accepted by StreamSource.
type Notification struct {
	Type    events.Kind   `json:"type"`
	X       int           `json:"x,omitempty"`
	Y       int           `json:"y,omitempty"`
	Button  events.Button `json:"button,omitempty"`
	Pressed bool          `json:"pressed,omitempty"`
	DX      int           `json:"dx,omitempty"`
	DY      int           `json:"dy,omitempty"`
	Key     string        `json:"key,omitempty"`
}

// Deliver forwards the notification to the matching Listener method.
func (n Notification) Deliver(l Listener) error {
	switch n.Type {
	case events.KindMove:
		l.OnMove(n.X, n.Y)
	case events.KindClick:
		l.OnClick(n.X, n.Y, n.Button, n.Pressed)
	case events.KindScroll:
		l.OnScroll(n.X, n.Y, n.DX, n.DY)
	case events.KindKeyPress:
		l.OnKeyPress(n.Key)
	case events.KindKeyRelease:
		l.OnKeyRelease(n.Key)
	default:
		return fmt.Errorf("unknown notification type %q", n.Type)
	}
	return nil
}

// hub fans notifications out to the listeners subscribed per device class.
type hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscriber
}

type subscriber struct {
	class    events.DeviceClass
	listener Listener
}

type hubSubscription struct {
	hub  *hub
	id   int
	once sync.Once
}

func (s *hubSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
	})
	return nil
}

// Subscribe attaches l to notifications of class.
func (h *hub) Subscribe(class events.DeviceClass, l Listener) (Subscription, error) {
	if l == nil {
		return nil, errors.New("listener must not be nil")
	}
	switch class {
	case events.DeviceMouse, events.DeviceKeyboard:
	default:
		return nil, fmt.Errorf("unsupported device class %q", class)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]subscriber)
	}
	h.nextID++
	h.subs[h.nextID] = subscriber{class: class, listener: l}
	return &hubSubscription{hub: h, id: h.nextID}, nil
}

// publish delivers n to every listener subscribed to its device class.
func (h *hub) publish(n Notification) error {
	class := n.Type.Device()
	h.mu.RLock()
	targets := make([]Listener, 0, len(h.subs))
	for _, sub := range h.subs {
		if sub.class == class {
			targets = append(targets, sub.listener)
		}
	}
	h.mu.RUnlock()

	for _, l := range targets {
		if err := n.Deliver(l); err != nil {
			return err
		}
	}
	return nil
}

// Subscribers reports how many listeners are attached.
func (h *hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
