package service

import "sync"

// symbolLocks serializes all mutations of one symbol.
type symbolLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newSymbolLocks() *symbolLocks {
	return &symbolLocks{m: make(map[string]*sync.Mutex)}
}

func (l *symbolLocks) Lock(symbol string) (unlock func()) {
	l.mu.Lock()
	mu, ok := l.m[symbol]
	if !ok {
		mu = &sync.Mutex{}
		l.m[symbol] = mu
	}
	l.mu.Unlock()

	mu.Lock()
	return mu.Unlock
}
