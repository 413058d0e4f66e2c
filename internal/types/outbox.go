package types

import "sync"

// Outbox is where a connection receives server messages. Send never blocks
// and is safe to call from several goroutines, including after Close.
type Outbox interface {
	Send(msg ServerMessage) bool
	Close(reason string)
}

const ReasonSlowClient = "send queue full"

// ChanOutbox is a bounded queue drained by a connection writer. A client that
// lets the queue fill up is dropped.
type ChanOutbox struct {
	ch     chan ServerMessage
	done   chan struct{}
	once   sync.Once
	reason string
}

var _ Outbox = (*ChanOutbox)(nil)

func NewChanOutbox(size int) *ChanOutbox {
	return &ChanOutbox{
		ch:   make(chan ServerMessage, size),
		done: make(chan struct{}),
	}
}

func (o *ChanOutbox) Send(msg ServerMessage) bool {
	select {
	case <-o.done:
		return false
	default:
	}

	select {
	case o.ch <- msg:
		return true
	case <-o.done:
		return false
	default:
		o.Close(ReasonSlowClient)
		return false
	}
}

func (o *ChanOutbox) Close(reason string) {
	o.once.Do(func() {
		o.reason = reason
		close(o.done)
	})
}

func (o *ChanOutbox) C() <-chan ServerMessage { return o.ch }

func (o *ChanOutbox) Done() <-chan struct{} { return o.done }

// Reason is only meaningful once Done is closed.
func (o *ChanOutbox) Reason() string {
	<-o.done
	return o.reason
}
