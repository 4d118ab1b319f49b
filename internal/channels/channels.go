package channels

import (
	"errors"
	"sync"

	"github.com/AbdulWasayUl/country-explorer/models"
)

var ErrClosed = errors.New("channels: closed")

type Channels struct {
	DataRequest chan models.DataRequest
	WG          *sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func New() *Channels {
	const bufferSize = 100
	return &Channels{
		DataRequest: make(chan models.DataRequest, bufferSize),
		WG:          &sync.WaitGroup{},
	}
}

// Submit queues req and counts it in WG; workers mark it done.
func (c *Channels) Submit(req models.DataRequest) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	c.WG.Add(1)
	c.DataRequest <- req
	return nil
}

// Close stops intake; queued requests are still delivered.
func (c *Channels) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.DataRequest)
}
