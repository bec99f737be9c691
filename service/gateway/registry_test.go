package gateway

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmitter struct {
	id  string
	err error

	mu  sync.Mutex
	got []Notification
}

func newFake(id string) *fakeEmitter { return &fakeEmitter{id: id} }

func (f *fakeEmitter) ID() string { return f.id }

func (f *fakeEmitter) Emit(event string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if event == EventNotification {
		f.got = append(f.got, payload.(Notification))
	}
	return nil
}

func (f *fakeEmitter) received() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.got...)
}

func TestRegistryLastRegisterWins(t *testing.T) {
	r := NewRegistry()
	h1, h2 := newFake("c1"), newFake("c2")

	assert.Nil(t, r.Register("alice", h1))
	replaced := r.Register("alice", h2)
	require.NotNil(t, replaced)
	assert.Equal(t, "c1", replaced.ID())

	got, ok := r.Resolve("alice")
	require.True(t, ok)
	assert.Equal(t, "c2", got.ID())
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, []string{"alice"}, r.ListConnectedUsers())
}

func TestRegistryRegisterSamePairIsIdempotent(t *testing.T) {
	r := NewRegistry()
	h := newFake("c1")
	r.Register("alice", h)
	assert.Nil(t, r.Register("alice", h))
	assert.Equal(t, 1, r.Count())
}

func TestRegistryUnregisterTwiceIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Register("alice", newFake("c1"))
	r.Register("bob", newFake("c2"))

	user, removed := r.Unregister("c1")
	assert.True(t, removed)
	assert.Equal(t, "alice", user)

	user, removed = r.Unregister("c1")
	assert.False(t, removed)
	assert.Empty(t, user)

	_, removed = r.Unregister("never-registered")
	assert.False(t, removed)

	assert.Equal(t, []string{"bob"}, r.ListConnectedUsers())
}

func TestRegistryStaleUnregisterKeepsNewerHandle(t *testing.T) {
	r := NewRegistry()
	r.Register("alice", newFake("old"))
	r.Register("alice", newFake("new"))

	_, removed := r.Unregister("old")
	assert.False(t, removed)

	got, ok := r.Resolve("alice")
	require.True(t, ok)
	assert.Equal(t, "new", got.ID())
}

func TestRegistryHandleMovesToAnotherUser(t *testing.T) {
	r := NewRegistry()
	h := newFake("c1")
	r.Register("alice", h)
	r.Register("bob", h)

	assert.False(t, r.IsConnected("alice"))
	assert.True(t, r.IsConnected("bob"))

	user, removed := r.Unregister("c1")
	assert.True(t, removed)
	assert.Equal(t, "bob", user)
	assert.Zero(t, r.Count())
}

func TestRegistryIgnoresEmptyInput(t *testing.T) {
	r := NewRegistry()
	r.Register("", newFake("c1"))
	r.Register("alice", nil)
	assert.Zero(t, r.Count())
	_, ok := r.Resolve("")
	assert.False(t, ok)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("user-%d", i)
			h := newFake(fmt.Sprintf("conn-%d", i))
			r.Register(id, h)
			r.Resolve(id)
			r.ListConnectedUsers()
			r.Unregister(h.ID())
		}(i)
	}
	wg.Wait()
	assert.Zero(t, r.Count())
}
