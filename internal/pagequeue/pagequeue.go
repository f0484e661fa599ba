// Package pagequeue decouples ContentFetcher's fetch worker pool from its
// single output-sink writer goroutine, the way the teacher's messaging
// package decouples crawling from downstream processing.
package pagequeue

import (
	"github.com/codepr/searchengine/internal/fetcher"
)

// Producer enqueues a single fetched page.
type Producer interface {
	Produce(fetcher.PageRecord) error
}

// Consumer drains pages, forwarding each to events until the underlying
// queue is closed.
type Consumer interface {
	Consume(events chan<- fetcher.PageRecord) error
}

// ProducerConsumer is a queue that both accepts and yields page records.
type ProducerConsumer interface {
	Producer
	Consumer
}

// ProducerConsumerCloser additionally owns the lifetime of its backing
// channel.
type ProducerConsumerCloser interface {
	ProducerConsumer
	Close()
}

// ChannelQueue is an in-memory ProducerConsumerCloser backed by a Go
// channel, sized to let a batch's worker pool run ahead of the sink writer.
type ChannelQueue struct {
	bus chan fetcher.PageRecord
}

// NewChannelQueue creates a ChannelQueue with the given buffer size.
func NewChannelQueue(buffer int) *ChannelQueue {
	return &ChannelQueue{bus: make(chan fetcher.PageRecord, buffer)}
}

// Produce enqueues rec, blocking if the buffer is full.
func (c *ChannelQueue) Produce(rec fetcher.PageRecord) error {
	c.bus <- rec
	return nil
}

// Consume forwards every queued record into events until Close is called.
func (c *ChannelQueue) Consume(events chan<- fetcher.PageRecord) error {
	for rec := range c.bus {
		events <- rec
	}
	return nil
}

// Close closes the underlying channel, unblocking any in-progress Consume.
func (c *ChannelQueue) Close() {
	close(c.bus)
}
