// Package i2cbus contains wrappers and test doubles for register-oriented I2C buses.
package i2cbus

import (
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Bus is the register transport of mcp23017.Device, repeated here to avoid the import.
type Bus interface {
	WriteRegister(deviceAddress, registerAddress, value byte) error
	ReadRegister(deviceAddress, registerAddress byte) (byte, error)
}

const (
	RequestWrite = iota + 1
	RequestRead
)

var ErrSequencerClosed = errors.New("i2c sequencer is closed")

type Request struct {
	Type     int
	Addr     byte
	Register byte
	Value    byte // Written value for RequestWrite, result for RequestRead
	Error    error

	done bool
	wait *sync.Cond
}

func (r *Request) init() {
	r.wait = &sync.Cond{L: new(sync.Mutex)}
}

func (r *Request) Wait() {
	r.wait.L.Lock()
	defer r.wait.L.Unlock()
	for !r.done {
		r.wait.Wait()
	}
}

func (r *Request) notifyDone() {
	r.wait.L.Lock()
	defer r.wait.L.Unlock()
	r.done = true
	r.wait.Broadcast()
}

// Sequencer executes all requests on a single goroutine, so any number of
// goroutines (and devices) can share one bus.
type Sequencer struct {
	bus   Bus
	queue chan *Request

	closeLock sync.RWMutex
	closed    bool
	stopped   sync.WaitGroup
}

// NewSequencer starts the goroutine handling the requests for bus.
// queueSize is the number of requests that can be pending without blocking the caller.
func NewSequencer(bus Bus, queueSize int) *Sequencer {
	s := &Sequencer{
		bus:   bus,
		queue: make(chan *Request, queueSize),
	}
	s.stopped.Add(1)
	go s.handleRequests()
	return s
}

func (s *Sequencer) handleRequests() {
	defer s.stopped.Done()
	for req := range s.queue {
		switch req.Type {
		case RequestWrite:
			req.Error = s.bus.WriteRegister(req.Addr, req.Register, req.Value)
		case RequestRead:
			req.Value, req.Error = s.bus.ReadRegister(req.Addr, req.Register)
		default:
			log.Errorln("Ignoring invalid I2C request with type", req.Type)
			req.Error = errors.New("invalid I2C request type")
		}
		req.notifyDone()
	}
}

// Queue enqueues a request without waiting for it. Call req.Wait() before reading the result.
func (s *Sequencer) Queue(req *Request) {
	req.init()
	s.closeLock.RLock()
	defer s.closeLock.RUnlock()
	if s.closed {
		req.Error = ErrSequencerClosed
		req.done = true
		return
	}
	s.queue <- req
}

func (s *Sequencer) Request(req *Request) {
	s.Queue(req)
	req.Wait()
}

func (s *Sequencer) WriteRegister(addr, register, value byte) error {
	req := &Request{
		Type:     RequestWrite,
		Addr:     addr,
		Register: register,
		Value:    value,
	}
	s.Request(req)
	return req.Error
}

func (s *Sequencer) ReadRegister(addr, register byte) (byte, error) {
	req := &Request{
		Type:     RequestRead,
		Addr:     addr,
		Register: register,
	}
	s.Request(req)
	return req.Value, req.Error
}

// Close lets the pending requests finish and stops the goroutine.
// Later requests fail with ErrSequencerClosed.
func (s *Sequencer) Close() {
	s.closeLock.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.closeLock.Unlock()
	s.stopped.Wait()
}
