// Package notif fans domain notifications out to observers and sends account mail.
package notif

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type EventType string

const (
	EventPasswordReset EventType = "password_reset"
	EventNewFollower   EventType = "new_follower"
	EventNewMessage    EventType = "new_message"
	EventRSVP          EventType = "event_rsvp"
)

// Event is one notification addressed to UserID.
type Event struct {
	Type          EventType
	UserID        string
	TriggerUserID string
	Email         string
	Header        string
	Content       string
	Metadata      map[string]string
	CreatedAt     time.Time
}

type Observer interface {
	Name() string
	Update(ctx context.Context, event Event) error
}

// Manager delivers events to every subscribed observer from a fixed pool of workers.
type Manager struct {
	observers    map[string]Observer
	eventChannel chan Event
	workerPool   int
	logger       *zap.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.RWMutex
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

func NewManager(workerPoolSize, queueSize int, logger *zap.Logger) *Manager {
	if workerPoolSize <= 0 {
		workerPoolSize = 1
	}
	if queueSize <= 0 {
		queueSize = 1000
	}
	ctx, cancel := context.WithCancel(context.Background())

	nm := &Manager{
		observers:    make(map[string]Observer),
		eventChannel: make(chan Event, queueSize),
		workerPool:   workerPoolSize,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}

	for i := 0; i < workerPoolSize; i++ {
		nm.wg.Add(1)
		go nm.processEvents()
	}

	return nm
}

func (nm *Manager) Subscribe(observer Observer) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.observers[observer.Name()] = observer
	nm.logger.Debug("observer subscribed", zap.String("observer", observer.Name()))
}

func (nm *Manager) Unsubscribe(observer Observer) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	delete(nm.observers, observer.Name())
	nm.logger.Debug("observer unsubscribed", zap.String("observer", observer.Name()))
}

// Notify delivers synchronously. Observer failures are logged, not returned.
func (nm *Manager) Notify(ctx context.Context, event Event) {
	nm.mu.RLock()
	observers := make([]Observer, 0, len(nm.observers))
	for _, obs := range nm.observers {
		observers = append(observers, obs)
	}
	nm.mu.RUnlock()

	for _, observer := range observers {
		if err := observer.Update(ctx, event); err != nil {
			nm.logger.Warn("observer update failed",
				zap.String("observer", observer.Name()),
				zap.String("type", string(event.Type)),
				zap.Error(err))
		}
	}
}

// NotifyAsync queues the event and drops it when the queue is full or the manager is stopped.
func (nm *Manager) NotifyAsync(event Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	select {
	case <-nm.ctx.Done():
		return
	default:
	}
	select {
	case nm.eventChannel <- event:
	case <-nm.ctx.Done():
	default:
		nm.logger.Warn("notification queue full, dropping event", zap.String("type", string(event.Type)))
	}
}

func (nm *Manager) processEvents() {
	defer nm.wg.Done()

	for {
		select {
		case event := <-nm.eventChannel:
			nm.Notify(nm.ctx, event)
		case <-nm.ctx.Done():
			nm.drain()
			return
		}
	}
}

// drain delivers whatever was queued before shutdown.
func (nm *Manager) drain() {
	for {
		select {
		case event := <-nm.eventChannel:
			nm.Notify(context.Background(), event)
		default:
			return
		}
	}
}

func (nm *Manager) Shutdown() {
	nm.closeOnce.Do(func() {
		nm.cancel()
		nm.wg.Wait()
		nm.logger.Info("notification manager shutdown complete")
	})
}
