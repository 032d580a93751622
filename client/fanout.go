package client

import (
	"sync/atomic"

	"github.com/cornelk/hashmap"
	"github.com/quantumbio/heartsync/internal/ringchan"
)

// fanout multiplexes events to any number of subscriber rings. Registration
// happens from consumer goroutines while the network goroutine publishes, so
// the subscriber table is a lock-free map.
type fanout struct {
	subs   *hashmap.Map[uint64, *ringchan.Ring[Event]]
	nextID atomic.Uint64
	buffer int
}

func newFanout(buffer int) *fanout {
	return &fanout{
		subs:   hashmap.New[uint64, *ringchan.Ring[Event]](),
		buffer: buffer,
	}
}

// subscribe registers a new ring. The cancel func detaches it without
// closing the channel; subscriber channels close only when the owning source
// shuts down, so a detached consumer simply stops receiving.
func (f *fanout) subscribe() (<-chan Event, func()) {
	id := f.nextID.Add(1)
	ring := ringchan.New[Event](f.buffer)
	f.subs.Set(id, ring)
	return ring.C(), func() { f.subs.Del(id) }
}

// publish delivers ev to every subscriber, dropping oldest on lag.
func (f *fanout) publish(ev Event) {
	f.subs.Range(func(_ uint64, ring *ringchan.Ring[Event]) bool {
		ring.Send(ev)
		return true
	})
}

// closeAll ends every subscriber channel. Only safe once no publisher can
// run anymore.
func (f *fanout) closeAll() {
	f.subs.Range(func(id uint64, ring *ringchan.Ring[Event]) bool {
		f.subs.Del(id)
		ring.Close()
		return true
	})
}
