package sharedstate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPairs() []*ValidatorPair {
	return []*ValidatorPair{
		{Index: 1, NodeA: &Node{Host: "host-a"}, NodeB: &Node{Host: "host-b"}},
		{Index: 2, NodeA: &Node{Host: "host-c"}, NodeB: &Node{Host: "host-d"}},
	}
}

func TestSharedState_SetPairsAndPair(t *testing.T) {
	s := New()
	s.SetPairs(newTestPairs())

	pair, err := s.Pair(2)
	require.NoError(t, err)
	assert.Equal(t, "host-c", pair.NodeA.Host)

	_, err = s.Pair(99)
	assert.Error(t, err)
}

func TestSharedState_Pairs_ReturnsCopyNotAlias(t *testing.T) {
	s := New()
	s.SetPairs(newTestPairs())

	got := s.Pairs()
	got[0] = nil

	again, err := s.Pair(1)
	require.NoError(t, err)
	assert.NotNil(t, again, "mutating the returned slice must not affect internal state")
}

func TestSharedState_SetNodeRole_UpdatesOnlyMatchingHost(t *testing.T) {
	s := New()
	s.SetPairs(newTestPairs())

	s.SetNodeRole(1, "host-a", "active")

	pair, err := s.Pair(1)
	require.NoError(t, err)
	assert.Equal(t, "active", pair.NodeA.Role)
	assert.Equal(t, "", pair.NodeB.Role)

	other, err := s.Pair(2)
	require.NoError(t, err)
	assert.Equal(t, "", other.NodeA.Role)
}

func TestValidatorPair_Other(t *testing.T) {
	pair := &ValidatorPair{NodeA: &Node{Host: "host-a"}, NodeB: &Node{Host: "host-b"}}

	assert.Same(t, pair.NodeB, pair.Other("host-a"))
	assert.Same(t, pair.NodeA, pair.Other("host-b"))
}

func TestSharedState_ConcurrentAccessDoesNotRace(t *testing.T) {
	s := New()
	s.SetPairs(newTestPairs())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Pairs()
		}()
		go func() {
			defer wg.Done()
			s.SetNodeRole(1, "host-a", "active")
		}()
	}
	wg.Wait()
}
