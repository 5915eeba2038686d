package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"papum-backend/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// PostgresChannel is the LISTEN/NOTIFY channel shared by all houses.
const PostgresChannel = "papum_house_events"

// PostgresNotifier publishes with pg_notify and receives through a single
// lib/pq listener, fanning events out to local subscribers per house.
type PostgresNotifier struct {
	db       *gorm.DB
	listener *pq.Listener
	hub      *MemoryHub

	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup
}

// NewPostgresNotifier publishes through db and listens on a dedicated
// connection opened from dsn.
func NewPostgresNotifier(db *gorm.DB, dsn string) (*PostgresNotifier, error) {
	log := logger.Component("realtime").With("backend", "postgres")

	listener := pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected:
			log.Warn("⚠️  Listener disconnected", "error", err)
		case pq.ListenerEventReconnected:
			log.Info("✅ Listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			log.Warn("⚠️  Listener connection attempt failed", "error", err)
		}
	})
	if err := listener.Listen(PostgresChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listen %s: %w", PostgresChannel, err)
	}

	n := &PostgresNotifier{
		db:       db,
		listener: listener,
		hub:      NewMemoryHub(),
		done:     make(chan struct{}),
	}
	n.wg.Add(1)
	go n.run()
	return n, nil
}

func (n *PostgresNotifier) run() {
	defer n.wg.Done()
	log := logger.Component("realtime").With("backend", "postgres")

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-n.done:
			return
		case notification, ok := <-n.listener.Notify:
			if !ok {
				return
			}
			// nil after a reconnect; notifications sent meanwhile are lost
			if notification == nil {
				continue
			}
			if err := n.dispatch(notification.Extra); err != nil {
				log.Warn("⚠️  Dropping event", "error", err)
			}
		case <-ping.C:
			go n.listener.Ping()
		}
	}
}

// dispatch forwards one NOTIFY payload to the local subscribers.
func (n *PostgresNotifier) dispatch(payload string) error {
	e, err := decode(payload)
	if err != nil {
		return err
	}
	if err := n.hub.Publish(context.Background(), e); err != nil {
		return fmt.Errorf("fan out event for house %s: %w", e.HouseID, err)
	}
	return nil
}

func (n *PostgresNotifier) Publish(ctx context.Context, e Event) error {
	payload, err := encode(e)
	if err != nil {
		return err
	}
	if err := n.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", PostgresChannel, payload).Error; err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

func (n *PostgresNotifier) Subscribe(ctx context.Context, houseID uuid.UUID) (<-chan Event, error) {
	return n.hub.Subscribe(ctx, houseID)
}

func (n *PostgresNotifier) Close() error {
	var err error
	n.once.Do(func() {
		close(n.done)
		n.wg.Wait()
		n.hub.Close()
		err = n.listener.Close()
	})
	return err
}
