package mediagroup

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator_FlushesAlbumOnce(t *testing.T) {
	flushed := make(chan Group, 4)
	ag := New(Options{
		Debounce: 20 * time.Millisecond,
		OnFlush:  func(g Group) { flushed <- g },
	})

	ag.Add(Item{ChatID: 1, MessageID: 11, MediaGroupID: "album", File: File{FileID: "a"}})
	ag.Add(Item{ChatID: 1, MessageID: 10, MediaGroupID: "album", Caption: "total?", File: File{FileID: "b"}})
	ag.Add(Item{ChatID: 2, MessageID: 20, MediaGroupID: "album", File: File{FileID: "c"}})
	assert.Equal(t, 2, ag.Pending())

	got := map[int64]Group{}
	for i := 0; i < 2; i++ {
		select {
		case g := <-flushed:
			got[g.ChatID] = g
		case <-time.After(time.Second):
			t.Fatal("album was not flushed")
		}
	}

	require.Contains(t, got, int64(1))
	assert.Equal(t, []File{{FileID: "b", MessageID: 10}, {FileID: "a", MessageID: 11}}, got[1].Files)
	assert.Equal(t, "total?", got[1].Caption)
	assert.Equal(t, 10, got[1].MessageID)
	assert.Len(t, got[2].Files, 1)
	assert.Equal(t, 0, ag.Pending())

	select {
	case g := <-flushed:
		t.Fatalf("unexpected extra flush: %+v", g)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAggregator_IgnoresIncompleteItems(t *testing.T) {
	ag := New(Options{Debounce: time.Hour})
	ag.Add(Item{ChatID: 1, File: File{FileID: "a"}})
	ag.Add(Item{ChatID: 1, MediaGroupID: "g"})
	assert.Equal(t, 0, ag.Pending())
}

func TestAggregator_OrdersPagesByMessageID(t *testing.T) {
	flushed := make(chan Group, 1)
	ag := New(Options{
		Debounce: 20 * time.Millisecond,
		OnFlush:  func(g Group) { flushed <- g },
	})

	for _, id := range []int{103, 101, 104, 102} {
		ag.Add(Item{ChatID: 1, MessageID: id, MediaGroupID: "album", File: File{FileID: fmt.Sprintf("p%d", id)}})
	}

	select {
	case g := <-flushed:
		var ids []string
		for _, f := range g.Files {
			ids = append(ids, f.FileID)
		}
		assert.Equal(t, []string{"p101", "p102", "p103", "p104"}, ids)
		assert.Equal(t, 101, g.MessageID)
	case <-time.After(time.Second):
		t.Fatal("album was not flushed")
	}
}
