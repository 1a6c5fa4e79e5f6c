package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Parley/internal/domain"
)

func TestRoomManagerGetOrCreateIsIdempotent(t *testing.T) {
	rm := NewRoomManager()

	first := rm.GetOrCreate("general")
	second := rm.GetOrCreate("general")
	assert.Same(t, first, second, "creating an existing room is a no-op")
}

func TestRoomManagerListSorted(t *testing.T) {
	rm := NewRoomManager()
	for _, name := range []string{"zulu", "alpha", "mike"} {
		rm.GetOrCreate(domain.RoomName(name))
	}

	infos := rm.List()
	require.Len(t, infos, 3)
	assert.Equal(t, "alpha", string(infos[0].Name))
	assert.Equal(t, "mike", string(infos[1].Name))
	assert.Equal(t, "zulu", string(infos[2].Name))
}

func TestRoomManagerGet(t *testing.T) {
	rm := NewRoomManager()
	_, ok := rm.Get("nope")
	assert.False(t, ok)

	rm.GetOrCreate("general")
	room, ok := rm.Get("general")
	require.True(t, ok)
	assert.Equal(t, domain.RoomName("general"), room.Room().Name)
}
