package bus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	odoo "github.com/odoojs/odoo.go"
	"github.com/odoojs/odoo.go/internal/fakeodoo"
	"github.com/odoojs/odoo.go/pkg/bus"
	"github.com/odoojs/odoo.go/pkg/connection"
	"github.com/odoojs/odoo.go/pkg/constants"
)

func TestExponentialBackoff(t *testing.T) {
	b := &bus.ExponentialBackoff{Initial: 100 * time.Millisecond, Max: time.Second, Factor: 2, MaxAttempts: 5}

	want := []time.Duration{100, 200, 400, 800, 1000}
	for attempt, ms := range want {
		d, ok := b.Delay(attempt)
		require.True(t, ok)
		assert.Equal(t, ms*time.Millisecond, d, "attempt %d", attempt)
	}
	_, ok := b.Delay(5)
	assert.False(t, ok)
}

func TestExponentialBackoffJitter(t *testing.T) {
	b := bus.NewExponentialBackoff()
	for range 100 {
		d, ok := b.Delay(3)
		require.True(t, ok)
		assert.GreaterOrEqual(t, d, 5600*time.Millisecond)
		assert.LessOrEqual(t, d, 10400*time.Millisecond)
	}
}

func TestConstantBackoff(t *testing.T) {
	b := bus.ConstantBackoff{Interval: time.Second, MaxAttempts: 2}
	d, ok := b.Delay(1)
	assert.True(t, ok)
	assert.Equal(t, time.Second, d)
	_, ok = b.Delay(2)
	assert.False(t, ok)

	_, ok = bus.ConstantBackoff{}.Delay(1000)
	assert.True(t, ok)
}

func TestFollowResumesAfterDrop(t *testing.T) {
	server := fakeodoo.NewServer()
	defer server.Close()
	client := connectedClient(t, server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan int64, 4)
	done := make(chan error, 1)
	go func() {
		done <- bus.Follow(ctx, client, []string{"a"}, bus.ConstantBackoff{Interval: 10 * time.Millisecond},
			func(n bus.Notification) error {
				got <- n.ID
				return nil
			})
	}()

	_, ok := server.WaitSubscription(waitFor)
	require.True(t, ok)
	require.NoError(t, server.Push(fakeodoo.Notification{ID: 5, Message: fakeodoo.BusMessage{Type: "x"}}))
	require.Equal(t, int64(5), <-got)

	server.DropBusClients()

	msg, ok := server.WaitSubscription(waitFor)
	require.True(t, ok)
	require.JSONEq(t, `{"event_name":"subscribe","data":{"channels":["a"],"last":5}}`, string(msg))
	require.NoError(t, server.Push(fakeodoo.Notification{ID: 6, Message: fakeodoo.BusMessage{Type: "x"}}))
	require.Equal(t, int64(6), <-got)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Follow did not return after cancel")
	}
}

func TestFollowWithoutBackoffReturnsDropError(t *testing.T) {
	server := fakeodoo.NewServer()
	defer server.Close()
	client := connectedClient(t, server)

	done := make(chan error, 1)
	go func() {
		done <- bus.Follow(context.Background(), client, nil, nil, func(bus.Notification) error { return nil })
	}()

	_, ok := server.WaitSubscription(waitFor)
	require.True(t, ok)
	server.DropBusClients()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(waitFor):
		t.Fatal("Follow did not return")
	}
}

func TestFollowStopsOnHandlerError(t *testing.T) {
	server := fakeodoo.NewServer()
	defer server.Close()
	client := connectedClient(t, server)

	stop := errors.New("stop")
	done := make(chan error, 1)
	go func() {
		done <- bus.Follow(context.Background(), client, nil, bus.ConstantBackoff{},
			func(bus.Notification) error { return stop })
	}()

	_, ok := server.WaitSubscription(waitFor)
	require.True(t, ok)
	require.NoError(t, server.Push(fakeodoo.Notification{ID: 1}))

	select {
	case err := <-done:
		require.ErrorIs(t, err, stop)
	case <-time.After(waitFor):
		t.Fatal("Follow did not return")
	}
}

func TestFollowRequiresSession(t *testing.T) {
	server := fakeodoo.NewServer()
	defer server.Close()

	client, err := odoo.New(connection.NewConfig(server.URL))
	require.NoError(t, err)

	err = bus.Follow(context.Background(), client, nil, bus.ConstantBackoff{}, func(bus.Notification) error { return nil })
	require.ErrorIs(t, err, constants.ErrNotAuthenticated)
}
