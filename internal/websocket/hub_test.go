package websocket

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient captures sent messages and follows an optional set of financings
type mockClient struct {
	id          string
	workspaceID int32
	follows     map[int32]struct{}
	messages    [][]byte
	mu          sync.Mutex
	closed      bool
}

func newMockClient(id string, workspaceID int32, follows ...int32) *mockClient {
	m := &mockClient{
		id:          id,
		workspaceID: workspaceID,
		follows:     make(map[int32]struct{}),
	}
	for _, f := range follows {
		m.follows[f] = struct{}{}
	}
	return m
}

func (m *mockClient) ID() string         { return m.id }
func (m *mockClient) WorkspaceID() int32 { return m.workspaceID }

func (m *mockClient) Accepts(financingID int32) bool {
	return acceptsFinancing(m.follows, financingID)
}

func (m *mockClient) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClientClosed
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *mockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockClient) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	client1 := newMockClient("client-1", 1)
	client2 := newMockClient("client-2", 1)
	client3 := newMockClient("client-3", 2)

	hub.Register(client1)
	hub.Register(client2)
	hub.Register(client3)

	assert.Equal(t, 2, hub.ClientCount(1))
	assert.Equal(t, 1, hub.ClientCount(2))
	assert.Equal(t, 0, hub.ClientCount(999))
	assert.Equal(t, 3, hub.TotalClientCount())

	hub.Unregister(client1)
	assert.Equal(t, 1, hub.ClientCount(1))

	hub.Unregister(client2)
	hub.Unregister(client3)
	assert.Equal(t, 0, hub.TotalClientCount())
}

func TestHub_Broadcast_WorkspaceIsolation(t *testing.T) {
	hub := NewHub()
	client1a := newMockClient("client-1a", 1)
	client1b := newMockClient("client-1b", 1)
	client2 := newMockClient("client-2", 2)
	hub.Register(client1a)
	hub.Register(client1b)
	hub.Register(client2)

	hub.Broadcast(1, FinancingPaymentCreated(map[string]interface{}{"id": float64(42)}))

	assert.Equal(t, 1, client1a.count())
	assert.Equal(t, 1, client1b.count())
	assert.Equal(t, 0, client2.count(), "client2 should not receive events from workspace 1")
}

func TestHub_Broadcast_FinancingSubscriptions(t *testing.T) {
	hub := NewHub()
	everything := newMockClient("all", 1)
	carOnly := newMockClient("car", 1, 7)
	houseOnly := newMockClient("house", 1, 8)
	hub.Register(everything)
	hub.Register(carOnly)
	hub.Register(houseOnly)

	hub.Broadcast(1, FinancingUpdated(map[string]interface{}{"id": float64(7)}).ForFinancing(7))
	hub.Broadcast(1, AccountUpdated(map[string]interface{}{"id": float64(1)}))

	assert.Equal(t, 2, everything.count())
	assert.Equal(t, 2, carOnly.count())
	assert.Equal(t, 1, houseOnly.count(), "workspace-wide events reach every subscriber")
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup
	clientCount := 50

	clients := make([]*mockClient, clientCount)
	for i := 0; i < clientCount; i++ {
		clients[i] = newMockClient(fmt.Sprintf("client-%d", i), int32(i%5))
	}

	for i := 0; i < clientCount; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			hub.Register(clients[idx])
		}(i)
	}
	wg.Wait()
	assert.Equal(t, clientCount, hub.TotalClientCount())

	for i := 0; i < clientCount; i++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			hub.Broadcast(int32(idx%5), FinancingPaymentCreated(map[string]interface{}{"id": float64(idx)}))
		}(i)
		go func(idx int) {
			defer wg.Done()
			hub.Unregister(clients[idx])
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, hub.TotalClientCount())
}

func TestHub_UnregisterNonexistent(t *testing.T) {
	hub := NewHub()

	require.NotPanics(t, func() {
		hub.Unregister(newMockClient("client-1", 1))
	})
}

func TestHub_BroadcastToEmptyWorkspace(t *testing.T) {
	hub := NewHub()

	require.NotPanics(t, func() {
		hub.Broadcast(999, FinancingPaymentCreated(map[string]interface{}{"id": float64(1)}))
	})
}

func TestHub_CloseAll(t *testing.T) {
	hub := NewHub()
	a := newMockClient("a", 1)
	b := newMockClient("b", 2)
	hub.Register(a)
	hub.Register(b)

	hub.CloseAll()

	assert.Equal(t, 0, hub.TotalClientCount())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestClient_HandleMessage(t *testing.T) {
	c := NewClient(nil, 1, NewHub())
	assert.True(t, c.Accepts(7), "no subscriptions accepts everything")

	c.HandleMessage([]byte(`{"action":"subscribe","financingId":7}`))
	assert.True(t, c.Accepts(7))
	assert.False(t, c.Accepts(8))
	assert.True(t, c.Accepts(0))

	c.HandleMessage([]byte(`not json`))
	c.HandleMessage([]byte(`{"action":"subscribe","financingId":-1}`))
	c.HandleMessage([]byte(`{"action":"mute","financingId":8}`))
	assert.False(t, c.Accepts(8))

	c.HandleMessage([]byte(`{"action":"unsubscribe","financingId":7}`))
	assert.True(t, c.Accepts(8))
}

func TestClient_SendAfterClose(t *testing.T) {
	c := NewClient(nil, 1, NewHub())
	require.NoError(t, c.Send([]byte("x")))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.True(t, c.IsClosed())
	assert.ErrorIs(t, c.Send([]byte("y")), ErrClientClosed)
}
