package hub

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubStatsTwoConnectionsOneGroup(t *testing.T) {
	r := NewRegistry()
	r.RegisterConnection(HubMarketData, "conn-1")
	r.RegisterConnection(HubMarketData, "conn-2")
	r.AddToGroup(HubMarketData, "conn-1", "prices:CRYPTO")
	r.AddToGroup(HubMarketData, "conn-2", "prices:CRYPTO")

	stats := r.HubStats(HubMarketData)
	assert.Equal(t, 2, stats.TotalConnections)
	assert.Equal(t, 2, stats.GroupMemberCounts["prices:CRYPTO"])
	assert.Equal(t, 1, stats.TotalGroups)
	assert.False(t, stats.LastActivity.IsZero())
}

func TestRegistryScopedPerHub(t *testing.T) {
	r := NewRegistry()
	r.RegisterConnection(HubMarketData, "conn-1")
	r.AddToGroup(HubMarketData, "conn-1", "prices:CRYPTO")

	assert.True(t, r.IsConnectionRegistered(HubMarketData, "conn-1"))
	assert.False(t, r.IsConnectionRegistered(HubSignals, "conn-1"))
	assert.Empty(t, r.HubConnections(HubSignals))
}

func TestUnregisterRemovesMemberships(t *testing.T) {
	r := NewRegistry()
	r.RegisterConnection(HubMarketData, "conn-1")
	r.AddToGroup(HubMarketData, "conn-1", "prices:CRYPTO")
	r.UnregisterConnection(HubMarketData, "conn-1")

	assert.False(t, r.IsConnectionRegistered(HubMarketData, "conn-1"))
	assert.Empty(t, r.GroupMembers(HubMarketData, "prices:CRYPTO"))
}

func TestHubGroupName(t *testing.T) {
	assert.Equal(t, "market-data:prices:CRYPTO", HubGroupName(HubMarketData, "prices:CRYPTO"))
	assert.NotEqual(t, HubGroupName(HubMarketData, "g"), HubGroupName(HubSignals, "g"))
}

func TestConcurrentGroupMutation(t *testing.T) {
	r := NewRegistry()
	r.RegisterConnection(HubMarketData, "conn-1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g := fmt.Sprintf("group-%d", i)
			r.AddToGroup(HubMarketData, "conn-1", g)
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.ConnectionGroups(HubMarketData, "conn-1"), 50)
}

func TestCleanupStaleConnections(t *testing.T) {
	r := NewRegistry()
	r.RegisterConnection(HubMarketData, "idle")
	r.RegisterConnection(HubMarketData, "member")
	r.AddToGroup(HubMarketData, "member", "prices:CRYPTO")

	// nothing is stale yet
	assert.Zero(t, r.CleanupStaleConnections(time.Minute))

	// with a zero max age everything older than "now" qualifies, but only
	// zero-membership connections are removed
	removed := r.CleanupStaleConnections(-time.Millisecond)
	assert.Equal(t, 1, removed)
	assert.False(t, r.IsConnectionRegistered(HubMarketData, "idle"))
	assert.True(t, r.IsConnectionRegistered(HubMarketData, "member"))
}

func TestBroadcasterDeliversOncePerConnection(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, nil, nil)

	ch, cancel := b.Subscribe(HubMarketData, "prices:CRYPTO", 8)
	defer cancel()

	b.Publish(HubMarketData, "prices:CRYPTO", "tick")

	select {
	case env := <-ch:
		assert.Equal(t, "prices:CRYPTO", env.Group)
		assert.Equal(t, "tick", env.Payload)
	case <-time.After(time.Second):
		t.Fatal("expected delivery")
	}
	select {
	case <-ch:
		t.Fatal("duplicate delivery")
	default:
	}
}

func TestBroadcasterDropsOldestWhenSlow(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, nil, nil)

	ch, cancel := b.Subscribe(HubMarketData, "prices:CRYPTO", 2)
	defer cancel()

	for i := 0; i < 5; i++ {
		b.Publish(HubMarketData, "prices:CRYPTO", i)
	}

	var got []interface{}
	for i := 0; i < 2; i++ {
		select {
		case env := <-ch:
			got = append(got, env.Payload)
		case <-time.After(time.Second):
			t.Fatal("expected buffered envelopes")
		}
	}
	require.Len(t, got, 2)
	// the newest publishes survive
	assert.Equal(t, 3, got[0])
	assert.Equal(t, 4, got[1])
}

func TestBroadcasterCancelUnregisters(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, nil, nil)

	_, cancel := b.Subscribe(HubMarketData, "prices:CRYPTO", 4)
	require.Equal(t, 1, r.HubStats(HubMarketData).TotalConnections)
	cancel()
	assert.Zero(t, r.HubStats(HubMarketData).TotalConnections)
}
