package expand

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnseenPathsAreExpanded(t *testing.T) {
	s := NewStore()
	for _, p := range []string{"", "PlayerUnit", "PlayerUnit.Stats.Life", "never.seen.0"} {
		assert.True(t, s.IsExpanded(p), p)
	}
	assert.Equal(t, 0, s.Len())
}

func TestToggle(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Toggle("PlayerUnit"), "first toggle of an open node collapses it")
	assert.False(t, s.IsExpanded("PlayerUnit"))
	assert.True(t, s.Toggle("PlayerUnit"))
	assert.True(t, s.IsExpanded("PlayerUnit"))
	assert.True(t, s.IsExpanded("Other"))
}

func TestSetAllOnlyTouchesGivenPaths(t *testing.T) {
	s := NewStore()
	s.SetAll([]string{"a", "a.b", "c"}, false)
	assert.False(t, s.IsExpanded("a"))
	assert.False(t, s.IsExpanded("a.b"))
	assert.False(t, s.IsExpanded("c"))
	assert.True(t, s.IsExpanded("d"))

	s.SetAll([]string{"a"}, true)
	assert.True(t, s.IsExpanded("a"))
	assert.False(t, s.IsExpanded("a.b"))
}

func TestStaleEntriesAreKept(t *testing.T) {
	s := NewStore()
	s.Set("gone.path", false)
	s.SetAll([]string{"current"}, true)
	assert.Equal(t, 2, s.Len())
	assert.False(t, s.IsExpanded("gone.path"))

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.True(t, s.IsExpanded("gone.path"))
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Toggle("shared")
				_ = s.IsExpanded("shared")
			}
		}()
	}
	wg.Wait()
	// 800 toggles is an even count.
	assert.True(t, s.IsExpanded("shared"))
}
