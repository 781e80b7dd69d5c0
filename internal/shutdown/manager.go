package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"egt-segmenter/internal/logger"
)

// Manager turns SIGINT/SIGTERM into context cancellation.
type Manager struct {
	logger logger.Logger
	mu     sync.Mutex
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	sigs   chan os.Signal
}

func NewManager(parent context.Context, log logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(parent)

	return &Manager{
		logger: log,
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Listen starts watching for termination signals. Stop releases them.
func (m *Manager) Listen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sigs != nil {
		return
	}

	m.sigs = make(chan os.Signal, 1)
	signal.Notify(m.sigs, os.Interrupt, syscall.SIGTERM)

	go func(sigs <-chan os.Signal) {
		select {
		case sig := <-sigs:
			m.logger.Warning("ShutdownManager", "shutdown signal received, finishing current planes", map[string]interface{}{
				"signal": sig.String(),
			})
			m.Shutdown()
		case <-m.done:
		}
	}(m.sigs)
}

// Shutdown cancels the context. It is safe to call more than once.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return
	default:
		close(m.done)
	}

	m.cancel()
	if m.sigs != nil {
		signal.Stop(m.sigs)
	}
}

// Stop is Shutdown for deferred cleanup.
func (m *Manager) Stop() {
	m.Shutdown()
}

func (m *Manager) Context() context.Context {
	return m.ctx
}

func (m *Manager) Done() <-chan struct{} {
	return m.done
}
