package brokers

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"sync"

	"messenger-service/internal/observability"
)

// Dispatcher routes events to the resolved broker of each targeted
// category. Events of one thread always land on the same worker, so they
// are delivered in emission order. Delivery errors are logged and counted,
// never returned.
type Dispatcher struct {
	routes map[Category]route
	queues []chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

type job struct {
	ctx   context.Context
	event Event
}

// NewDispatcher resolves sel against reg. With workers <= 0 events are
// delivered inline by Emit.
func NewDispatcher(reg *Registry, sel Selection, workers, queueSize int) *Dispatcher {
	d := &Dispatcher{routes: reg.routes(sel)}
	for _, c := range Categories {
		log.Printf("broker category=%s driver=%s", c, d.routes[c].driver)
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	for i := 0; i < workers; i++ {
		q := make(chan job, queueSize)
		d.queues = append(d.queues, q)
		d.wg.Add(1)
		go d.work(q)
	}
	return d
}

// Driver reports the effective driver alias of a category.
func (d *Dispatcher) Driver(c Category) string {
	return d.routes[c].driver
}

// Emit hands the event to its shard and returns without waiting for
// delivery. When the shard queue is full Emit waits for room until ctx is
// done, then drops the event.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	deliveryCtx := context.WithoutCancel(ctx)
	if len(d.queues) == 0 {
		d.deliver(deliveryCtx, event)
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(event, "dispatcher closed")
		return
	}
	select {
	case d.queues[d.shard(event.ThreadID)] <- job{ctx: deliveryCtx, event: event}:
	case <-ctx.Done():
		d.drop(event, ctx.Err().Error())
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) shard(threadID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(threadID))
	return int(h.Sum32() % uint32(len(d.queues)))
}

func (d *Dispatcher) work(q chan job) {
	defer d.wg.Done()
	for j := range q {
		d.deliver(j.ctx, j.event)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) {
	if len(event.Audience) == 0 {
		return
	}
	for _, c := range Categories {
		if !event.targets(c) {
			continue
		}
		r := d.routes[c]
		if err := d.call(ctx, r.broker, event); err != nil {
			log.Printf("broker dispatch failed category=%s driver=%s event=%s err=%v", c, r.driver, event.Name, err)
			observability.IncBrokerDispatch(string(c), r.driver, "error")
			continue
		}
		observability.IncBrokerDispatch(string(c), r.driver, "ok")
	}
}

// call shields the worker from a panicking driver.
func (d *Dispatcher) call(ctx context.Context, b Broker, event Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = panicError{value: rec}
		}
	}()
	return b.BroadcastEvent(ctx, event.Name, event.Audience, event.Payload)
}

func (d *Dispatcher) drop(event Event, reason string) {
	log.Printf("broker event dropped event=%s thread_id=%s reason=%s", event.Name, event.ThreadID, reason)
	for _, c := range Categories {
		if event.targets(c) {
			observability.IncBrokerDispatch(string(c), d.routes[c].driver, "dropped")
		}
	}
}

type panicError struct {
	value any
}

func (p panicError) Error() string {
	return fmt.Sprintf("broker panic: %v", p.value)
}
