package twitch

import (
	"context"
	"sync"

	"twitch-chat-guard/model"
)

type event struct {
	status  model.ConnectionStatus
	message *model.ChatEvent
}

// dispatcher — неограниченная FIFO-очередь событий для слушателя.
// Запись не блокируется, поэтому её можно делать под мьютексом соединения.
type dispatcher struct {
	mu      sync.Mutex
	pending []event
	wake    chan struct{}
}

func newDispatcher() *dispatcher {
	return &dispatcher{wake: make(chan struct{}, 1)}
}

func (d *dispatcher) pushStatus(s model.ConnectionStatus) {
	d.push(event{status: s})
}

func (d *dispatcher) pushMessage(ev model.ChatEvent) {
	d.push(event{message: &ev})
}

func (d *dispatcher) push(e event) {
	d.mu.Lock()
	d.pending = append(d.pending, e)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) take() []event {
	d.mu.Lock()
	defer d.mu.Unlock()

	batch := d.pending
	d.pending = nil
	return batch
}

// run доставляет события до отмены контекста. Вызывается из одной горутины.
func (d *dispatcher) run(ctx context.Context, l Listener) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
			d.drain(l)
		}
	}
}

func (d *dispatcher) drain(l Listener) {
	for {
		batch := d.take()
		if len(batch) == 0 {
			return
		}
		for _, e := range batch {
			if e.message != nil {
				l.OnMessage(*e.message)
				continue
			}
			l.OnStatus(e.status)
		}
	}
}
