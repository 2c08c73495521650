package ws

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryJoinAndDisconnect(t *testing.T) {
	r := NewRegistry()

	r.Join("conn-a", 1)
	r.Join("conn-b", 2)

	require.Equal(t, 2, r.Len())
	got, ok := r.UserFor("conn-a")
	require.True(t, ok)
	require.Equal(t, 1, got)

	userID, found := r.Disconnect("conn-a")
	require.True(t, found)
	require.Equal(t, 1, userID)
	require.Equal(t, 1, r.Len())

	_, ok = r.UserFor("conn-a")
	require.False(t, ok)
}

func TestRegistryDisconnectUnknownConn(t *testing.T) {
	r := NewRegistry()
	r.Join("conn-a", 1)

	_, found := r.Disconnect("never-joined")
	require.False(t, found)
	require.Equal(t, 1, r.Len())
}

func TestRegistryOnlineListKeepsOneEntryPerConnection(t *testing.T) {
	r := NewRegistry()

	// same user on two tabs
	r.Join("conn-a", 7)
	r.Join("conn-b", 7)
	r.Join("conn-c", 9)

	ids := r.ListOnline()
	require.Len(t, ids, 3)

	counts := map[int]int{}
	for _, id := range ids {
		counts[id]++
	}
	require.Equal(t, 2, counts[7])
	require.Equal(t, 1, counts[9])

	r.Disconnect("conn-a")
	ids = r.ListOnline()
	require.Len(t, ids, 2)
	require.Contains(t, ids, 7)
}
