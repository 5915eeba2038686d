package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func receive(t *testing.T, ch <-chan Event) (Event, bool) {
	t.Helper()
	select {
	case e, ok := <-ch:
		return e, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}, false
}

func TestMemoryHubDeliversToHouseSubscribers(t *testing.T) {
	hub := NewMemoryHub()
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	house, other := uuid.New(), uuid.New()
	mine, err := hub.Subscribe(ctx, house)
	if err != nil {
		t.Fatal(err)
	}
	theirs, err := hub.Subscribe(ctx, other)
	if err != nil {
		t.Fatal(err)
	}

	if err := hub.Publish(ctx, NewEvent(house, KindExpensesChanged)); err != nil {
		t.Fatal(err)
	}

	e, ok := receive(t, mine)
	if !ok || e.HouseID != house || e.Kind != KindExpensesChanged {
		t.Fatalf("got %+v, ok=%v", e, ok)
	}

	select {
	case e := <-theirs:
		t.Fatalf("other house received %+v", e)
	default:
	}
}

func TestMemoryHubClosesChannelOnCancel(t *testing.T) {
	hub := NewMemoryHub()
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := hub.Subscribe(ctx, uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	if _, ok := receive(t, ch); ok {
		t.Fatal("expected closed channel after cancel")
	}
}

func TestMemoryHubClose(t *testing.T) {
	hub := NewMemoryHub()
	ch, err := hub.Subscribe(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}

	if err := hub.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := receive(t, ch); ok {
		t.Fatal("expected closed channel after Close")
	}
	if err := hub.Publish(context.Background(), NewEvent(uuid.New(), KindHouseChanged)); !errors.Is(err, ErrClosed) {
		t.Errorf("publish after close: got %v", err)
	}
	if _, err := hub.Subscribe(context.Background(), uuid.New()); !errors.Is(err, ErrClosed) {
		t.Errorf("subscribe after close: got %v", err)
	}
	if err := hub.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestMemoryHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewMemoryHub()
	defer hub.Close()

	house := uuid.New()
	ch, err := hub.Subscribe(context.Background(), house)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < subscriberBuffer+5; i++ {
		if err := hub.Publish(context.Background(), NewEvent(house, KindExpensesChanged)); err != nil {
			t.Fatal(err)
		}
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("buffered %d events, want %d", len(ch), subscriberBuffer)
	}
}

func TestEventPayloadRoundTrip(t *testing.T) {
	e := NewEvent(uuid.New(), KindHouseChanged)
	payload, err := encode(e)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decode(payload)
	if err != nil {
		t.Fatal(err)
	}
	if got.HouseID != e.HouseID || got.Kind != e.Kind || !got.At.Equal(e.At) {
		t.Errorf("got %+v, want %+v", got, e)
	}
	if _, err := decode("not json"); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestPostgresDispatch(t *testing.T) {
	hub := NewMemoryHub()
	n := &PostgresNotifier{hub: hub}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	house := uuid.New()
	events, err := hub.Subscribe(ctx, house)
	if err != nil {
		t.Fatal(err)
	}

	payload, err := encode(NewEvent(house, KindHouseChanged))
	if err != nil {
		t.Fatal(err)
	}
	if err := n.dispatch(payload); err != nil {
		t.Fatal(err)
	}
	if e, _ := receive(t, events); e.Kind != KindHouseChanged {
		t.Errorf("kind = %s", e.Kind)
	}

	if err := n.dispatch("{not json"); err == nil {
		t.Error("expected an error for a malformed payload")
	}

	hub.Close()
	if err := n.dispatch(payload); !errors.Is(err, ErrClosed) {
		t.Errorf("dispatch after close = %v, want ErrClosed", err)
	}
}
