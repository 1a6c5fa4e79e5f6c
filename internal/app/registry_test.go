package app

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func bindSession(r *Registry, sid core.SessionID) (*fakeConn, *bool) {
	fc := &fakeConn{}
	canceled := false
	sess := core.NewMemberSession(&domain.User{}, fc)
	r.Bind(sid, sess, func() { canceled = true })
	return fc, &canceled
}

func TestRegistryLogin(t *testing.T) {
	r := NewRegistry()
	bindSession(r, "sid-a")

	evicted, err := r.Login("sid-a", "alice")
	require.NoError(t, err)
	assert.Empty(t, evicted)

	name, ok := r.UsernameOf("sid-a")
	require.True(t, ok)
	assert.Equal(t, "alice", name)

	sess, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "alice", sess.User().Username)
}

func TestRegistryLoginValidation(t *testing.T) {
	r := NewRegistry()
	bindSession(r, "sid-a")

	tests := []struct {
		name     string
		username string
	}{
		{name: "empty username", username: ""},
		{name: "too long", username: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Login("sid-a", tt.username)
			assert.Error(t, err)
		})
	}
}

func TestRegistryDuplicateLoginEvictsPrior(t *testing.T) {
	r := NewRegistry()
	bindSession(r, "sid-old")
	bindSession(r, "sid-new")

	_, err := r.Login("sid-old", "alice")
	require.NoError(t, err)

	evicted, err := r.Login("sid-new", "alice")
	require.NoError(t, err)
	assert.Equal(t, core.SessionID("sid-old"), evicted, "last login wins")

	sess, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "alice", sess.User().Username)

	// the old sid no longer owns the username
	_, ok = r.UsernameOf("sid-old")
	assert.False(t, ok)
	name, ok := r.UsernameOf("sid-new")
	require.True(t, ok)
	assert.Equal(t, "alice", name)
}

func TestRegistryReloginReleasesPriorName(t *testing.T) {
	r := NewRegistry()
	bindSession(r, "sid-a")

	_, err := r.Login("sid-a", "alice")
	require.NoError(t, err)
	_, err = r.Login("sid-a", "bob")
	require.NoError(t, err)

	assert.Equal(t, []string{"bob"}, r.OnlineUsernames(), "the old name leaves the roster")
	_, ok := r.Lookup("alice")
	assert.False(t, ok, "the old name no longer routes anywhere")

	name, ok := r.UsernameOf("sid-a")
	require.True(t, ok)
	assert.Equal(t, "bob", name)
}

func TestRegistryLogoutIsIdempotent(t *testing.T) {
	r := NewRegistry()
	bindSession(r, "sid-a")
	_, err := r.Login("sid-a", "alice")
	require.NoError(t, err)

	username, _, ok := r.Logout("sid-a")
	require.True(t, ok)
	assert.Equal(t, "alice", username)

	_, _, ok = r.Logout("sid-a")
	assert.False(t, ok, "second logout is a no-op")

	_, ok = r.Lookup("alice")
	assert.False(t, ok)
}

func TestRegistryActiveVsJoined(t *testing.T) {
	r := NewRegistry()
	bindSession(r, "sid-a")
	_, err := r.Login("sid-a", "alice")
	require.NoError(t, err)

	r.MarkJoined("sid-a", "general")
	r.MarkJoined("sid-a", "random")
	r.SetActiveRoom("sid-a", "general")

	assert.ElementsMatch(t, []domain.RoomName{"general", "random"}, r.JoinedRooms("sid-a"))

	active, ok := r.ActiveRoomOf("sid-a")
	require.True(t, ok)
	assert.Equal(t, domain.RoomName("general"), active)

	// active membership drives presence, joined does not
	assert.Equal(t, []string{"alice"}, r.ActiveUsernames("general"))
	assert.Empty(t, r.ActiveUsernames("random"))

	r.ClearActiveRoom("sid-a")
	_, ok = r.ActiveRoomOf("sid-a")
	assert.False(t, ok)
	assert.Empty(t, r.ActiveUsernames("general"))
}

func TestRegistryActiveUsernamesSorted(t *testing.T) {
	r := NewRegistry()
	for _, u := range []string{"zoe", "alice", "mike"} {
		sid := core.SessionID("sid-" + u)
		bindSession(r, sid)
		_, err := r.Login(sid, u)
		require.NoError(t, err)
		r.SetActiveRoom(sid, "general")
	}
	assert.Equal(t, []string{"alice", "mike", "zoe"}, r.ActiveUsernames("general"))
	assert.Equal(t, []string{"alice", "mike", "zoe"}, r.OnlineUsernames())
}

func TestRegistryCancel(t *testing.T) {
	r := NewRegistry()
	_, canceled := bindSession(r, "sid-a")

	assert.True(t, r.Cancel("sid-a"))
	assert.True(t, *canceled)
	assert.False(t, r.Cancel("sid-unknown"))
}
