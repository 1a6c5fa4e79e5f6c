package orch

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Parley/internal/app"
	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
)

const defaultRoom = domain.RoomName("PublicChatRoom")

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

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	rooms := app.NewRoomManager()
	rooms.GetOrCreate(defaultRoom)
	return &Orchestrator{
		Registry:    app.NewRegistry(),
		Rooms:       rooms,
		History:     core.NewHistory(10),
		DefaultRoom: defaultRoom,
	}
}

func connect(t *testing.T, o *Orchestrator, sid core.SessionID, username string) *fakeConn {
	t.Helper()
	fc := &fakeConn{}
	sess := core.NewMemberSession(&domain.User{}, fc)
	o.Connect(sid, sess, func() {})
	require.NoError(t, o.Login(sid, username))
	return fc
}

func TestLoginSeedsDefaultRoom(t *testing.T) {
	o := newOrchestrator(t)
	connect(t, o, "sid-a", "alice")

	active, ok := o.Registry.ActiveRoomOf("sid-a")
	require.True(t, ok)
	assert.Equal(t, defaultRoom, active)
	assert.Equal(t, []string{"alice"}, o.ActiveMembers(defaultRoom))

	room, ok := o.Rooms.Get(defaultRoom)
	require.True(t, ok)
	assert.Equal(t, 1, room.MemberCount())
}

func TestDuplicateLoginEvictsPriorSession(t *testing.T) {
	o := newOrchestrator(t)
	connect(t, o, "sid-old", "alice")

	fc := &fakeConn{}
	sess := core.NewMemberSession(&domain.User{}, fc)
	o.Connect("sid-new", sess, func() {})
	require.NoError(t, o.Login("sid-new", "alice"))

	_, ok := o.Registry.UsernameOf("sid-old")
	assert.False(t, ok, "old session no longer owns the username")

	name, ok := o.Registry.UsernameOf("sid-new")
	require.True(t, ok)
	assert.Equal(t, "alice", name)

	room, ok := o.Rooms.Get(defaultRoom)
	require.True(t, ok)
	assert.Equal(t, 1, room.MemberCount(), "evicted session leaves the room")
}

func TestDuplicateLoginClosesPriorConnection(t *testing.T) {
	o := newOrchestrator(t)
	old := connect(t, o, "sid-old", "alice")

	fc := &fakeConn{}
	o.Connect("sid-new", core.NewMemberSession(&domain.User{}, fc), func() {})
	require.NoError(t, o.Login("sid-new", "alice"))

	assert.True(t, old.isClosed(), "the replaced connection is closed, not just abandoned")
	assert.False(t, fc.isClosed())
}

func TestPostAssignsSequentialIndices(t *testing.T) {
	o := newOrchestrator(t)
	connect(t, o, "sid-a", "alice")
	connect(t, o, "sid-b", "bob")

	m1, err := o.Post("sid-a", "hi")
	require.NoError(t, err)
	m2, err := o.Post("sid-b", "yo")
	require.NoError(t, err)

	assert.Equal(t, 1, m1.Index)
	assert.Equal(t, "alice", m1.Author)
	assert.Equal(t, 2, m2.Index)
	assert.Equal(t, "bob", m2.Author)
}

func TestEditScenario(t *testing.T) {
	o := newOrchestrator(t)
	connect(t, o, "sid-a", "alice")
	require.NoError(t, o.JoinRoom("sid-a", "general"))
	m1, err := o.Post("sid-a", "hi")
	require.NoError(t, err)

	connect(t, o, "sid-b", "bob")
	require.NoError(t, o.JoinRoom("sid-b", "general"))
	m2, err := o.Post("sid-b", "yo")
	require.NoError(t, err)
	assert.Equal(t, 2, m2.Index)

	updated, err := o.Edit("sid-a", 1, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Body)
	assert.Equal(t, 1, updated.Index)
	assert.Equal(t, "alice", updated.Author)
	assert.True(t, updated.Edited)
	assert.Equal(t, m1.Timestamp, updated.Timestamp)
}

func TestEditByNonAuthorIsUnauthorized(t *testing.T) {
	o := newOrchestrator(t)
	connect(t, o, "sid-a", "alice")
	connect(t, o, "sid-b", "bob")
	_, err := o.Post("sid-a", "mine")
	require.NoError(t, err)

	_, err = o.Edit("sid-b", 1, "stolen")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	msg, found := o.History.Get(defaultRoom, 1)
	require.True(t, found)
	assert.Equal(t, "mine", msg.Body)
}

func TestReplyEmbedsBoundedExcerpt(t *testing.T) {
	o := newOrchestrator(t)
	connect(t, o, "sid-a", "alice")
	connect(t, o, "sid-b", "bob")

	long := "this original message is definitely longer than forty characters total"
	_, err := o.Post("sid-a", long)
	require.NoError(t, err)

	reply, err := o.Reply("sid-b", 1, "agreed")
	require.NoError(t, err)
	assert.Equal(t, 2, reply.Index, "a reply is a new message, not a mutation")
	assert.Contains(t, reply.Body, long[:40]+"...")
	assert.Contains(t, reply.Body, "alice")
	assert.Contains(t, reply.Body, "agreed")
	assert.NotContains(t, reply.Body, long[:50], "excerpt is bounded")

	original, found := o.History.Get(defaultRoom, 1)
	require.True(t, found)
	assert.Equal(t, long, original.Body)
}

func TestReplyExcerptKeepsRuneBoundaries(t *testing.T) {
	o := newOrchestrator(t)
	connect(t, o, "sid-a", "alice")
	connect(t, o, "sid-b", "bob")

	long := strings.Repeat("é", 45)
	_, err := o.Post("sid-a", long)
	require.NoError(t, err)

	reply, err := o.Reply("sid-b", 1, "oui")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(reply.Body), "truncation never splits a rune")
	assert.Contains(t, reply.Body, strings.Repeat("é", 40)+"...")
	assert.NotContains(t, reply.Body, strings.Repeat("é", 41))
}

func TestReplyToMissingIndex(t *testing.T) {
	o := newOrchestrator(t)
	connect(t, o, "sid-a", "alice")

	_, err := o.Reply("sid-a", 42, "into the void")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLeaveRoomBlocksPosting(t *testing.T) {
	o := newOrchestrator(t)
	connect(t, o, "sid-a", "alice")
	connect(t, o, "sid-b", "bob")

	room, err := o.LeaveRoom("sid-a")
	require.NoError(t, err)
	assert.Equal(t, defaultRoom, room)

	assert.NotContains(t, o.ActiveMembers(defaultRoom), "alice")
	assert.Contains(t, o.ActiveMembers(defaultRoom), "bob")

	_, err = o.Post("sid-a", "anyone?")
	assert.ErrorIs(t, err, core.ErrNoActiveRoom)

	_, err = o.LeaveRoom("sid-a")
	assert.ErrorIs(t, err, core.ErrNoActiveRoom)
}

func TestSetActiveRoom(t *testing.T) {
	o := newOrchestrator(t)
	connect(t, o, "sid-a", "alice")

	err := o.SetActiveRoom("sid-a", "ghost-room")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = o.CreateRoom("side")
	require.NoError(t, err)
	require.NoError(t, o.SetActiveRoom("sid-a", "side"))

	active, ok := o.Registry.ActiveRoomOf("sid-a")
	require.True(t, ok)
	assert.Equal(t, domain.RoomName("side"), active)

	// /ROOM does not touch the membership relation
	assert.NotContains(t, o.Registry.JoinedRooms("sid-a"), domain.RoomName("side"))
}

func TestHistoryCapScenario(t *testing.T) {
	o := newOrchestrator(t)
	connect(t, o, "sid-a", "alice")
	require.NoError(t, o.JoinRoom("sid-a", "fresh"))

	for i := 1; i <= 11; i++ {
		_, err := o.Post("sid-a", fmt.Sprintf("post %d", i))
		require.NoError(t, err)
	}

	msgs, room, err := o.Tail("sid-a", 10)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomName("fresh"), room)
	require.Len(t, msgs, 10)
	assert.Equal(t, 2, msgs[0].Index)
	assert.Equal(t, 11, msgs[9].Index)

	_, found := o.History.Get("fresh", 1)
	assert.False(t, found)
}

func TestDisconnectReleasesEverything(t *testing.T) {
	o := newOrchestrator(t)
	connect(t, o, "sid-a", "alice")
	require.NoError(t, o.JoinRoom("sid-a", "general"))

	username, ok := o.Disconnect("sid-a")
	require.True(t, ok)
	assert.Equal(t, "alice", username)

	_, ok = o.LookupUser("alice")
	assert.False(t, ok)
	for _, name := range []domain.RoomName{defaultRoom, "general"} {
		room, found := o.Rooms.Get(name)
		require.True(t, found)
		assert.Equal(t, 0, room.MemberCount())
	}

	// disconnecting an unknown sid is a no-op
	_, ok = o.Disconnect("sid-a")
	assert.False(t, ok)
}

func TestPrivateRecordsAudit(t *testing.T) {
	o := newOrchestrator(t)
	audit, err := app.NewAuditLog()
	require.NoError(t, err)
	defer audit.Close()
	o.Audit = audit

	connect(t, o, "sid-a", "alice")

	pm, err := o.Private("sid-a", "bob", "hey")
	require.NoError(t, err)
	assert.Equal(t, "alice", pm.Author)
	assert.Equal(t, "bob", pm.Recipient)

	n, err := audit.CountFor("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWhoIsSorted(t *testing.T) {
	o := newOrchestrator(t)
	connect(t, o, "sid-z", "zoe")
	connect(t, o, "sid-a", "alice")
	assert.Equal(t, []string{"alice", "zoe"}, o.Who())
}
