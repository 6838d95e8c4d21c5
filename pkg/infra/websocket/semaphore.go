package websocket

const defaultMaxConnections = 1024

type Semaphore struct {
	connections chan struct{}
}

type SemaphoreOption func(*semaphoreOptions)

type semaphoreOptions struct {
	maxConnections int
}

func WithMaxConnections(max int) SemaphoreOption {
	return func(o *semaphoreOptions) {
		if max > 0 {
			o.maxConnections = max
		}
	}
}

func NewSemaphore(opts ...SemaphoreOption) *Semaphore {
	options := &semaphoreOptions{maxConnections: defaultMaxConnections}
	for _, opt := range opts {
		opt(options)
	}
	return &Semaphore{
		connections: make(chan struct{}, options.maxConnections),
	}
}

func (s *Semaphore) Acquire() bool {
	select {
	case s.connections <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Semaphore) Release() {
	select {
	case <-s.connections:
	default:
	}
}

func (s *Semaphore) GetCurrentConnections() int {
	return len(s.connections)
}
