package party

import (
	"sync"
	"testing"

	"github.com/programmingdumpster/partybot/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CopiesRecordsInAndOut(t *testing.T) {
	r := NewRegistry()
	p := repository.Party{PartyID: "1", LeaderID: "L", MemberIDs: []string{"L"}}
	r.Upsert(p)

	p.MemberIDs[0] = "mutated"
	got, ok := r.Get("1")
	require.True(t, ok)
	assert.Equal(t, []string{"L"}, got.MemberIDs)

	got.MemberIDs = append(got.MemberIDs, "X")
	again, _ := r.Get("1")
	assert.Equal(t, []string{"L"}, again.MemberIDs)
}

func TestRegistry_FindByLeaderAndRemove(t *testing.T) {
	r := NewRegistry()
	r.Upsert(repository.Party{PartyID: "2", LeaderID: "B"})
	r.Upsert(repository.Party{PartyID: "1", LeaderID: "A"})

	p, ok := r.FindByLeader("B")
	require.True(t, ok)
	assert.Equal(t, "2", p.PartyID)

	_, ok = r.FindByLeader("nobody")
	assert.False(t, ok)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "1", all[0].PartyID)
	assert.Equal(t, "2", all[1].PartyID)

	removed, ok := r.Remove("1")
	require.True(t, ok)
	assert.Equal(t, "A", removed.LeaderID)
	_, ok = r.Remove("1")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestLocks_SerializeSameKeyAndCleanUp(t *testing.T) {
	l := NewLocks()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("party-1")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, l.size())
}
