// internal/events/handler.go
package events

import (
	"context"
)

// Handler обрабатывает события одного типа. Не должен блокировать.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Publisher часть шины, нужная отправителям событий.
type Publisher interface {
	Publish(event Event) error
}

// Subscription отменяет подписку.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id       string
	eventBus *Bus
	typ      EventType
}

func (s *subscription) Unsubscribe() {
	s.eventBus.unsubscribe(s.id, s.typ)
}
