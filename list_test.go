package rtos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listNode struct {
	id   int
	next *listNode
}

func nodeNext(n *listNode) *listNode    { return n.next }
func nodeSetNext(n, next *listNode)     { n.next = next }
func nodeLess(a, b *listNode) bool      { return a.id < b.id }

func TestListPushPop(t *testing.T) {
	l := NewList[listNode](nodeNext, nodeSetNext)
	require.True(t, l.Empty())

	a, b, c := &listNode{id: 1}, &listNode{id: 2}, &listNode{id: 3}
	l.PushTail(a)
	l.PushTail(b)
	l.PushTail(c)
	assert.Equal(t, 3, l.Len())

	assert.Same(t, a, l.PopHead())
	assert.Same(t, b, l.PopHead())
	assert.Same(t, c, l.PopHead())
	assert.Nil(t, l.PopHead())
	assert.True(t, l.Empty())
}

func TestListInsertSortedIsStableAtTies(t *testing.T) {
	l := NewList[listNode](nodeNext, nodeSetNext)
	first := &listNode{id: 5}
	second := &listNode{id: 5}
	third := &listNode{id: 1}

	l.InsertSorted(first, nodeLess)
	l.InsertSorted(second, nodeLess)
	l.InsertSorted(third, nodeLess)

	// third (priority 1) goes to the head; first and second keep FIFO order
	// among themselves despite sharing a priority.
	assert.Same(t, third, l.PopHead())
	assert.Same(t, first, l.PopHead())
	assert.Same(t, second, l.PopHead())
}

func TestListRemoveByIdentity(t *testing.T) {
	l := NewList[listNode](nodeNext, nodeSetNext)
	a, b, c := &listNode{id: 1}, &listNode{id: 2}, &listNode{id: 3}
	l.PushTail(a)
	l.PushTail(b)
	l.PushTail(c)

	assert.True(t, l.Remove(b))
	assert.False(t, l.Remove(b))
	assert.Equal(t, 2, l.Len())
	assert.Same(t, a, l.PopHead())
	assert.Same(t, c, l.PopHead())
}

func TestListWalkRemovesAndStops(t *testing.T) {
	l := NewList[listNode](nodeNext, nodeSetNext)
	for i := 1; i <= 4; i++ {
		l.PushTail(&listNode{id: i})
	}

	var visited []int
	l.Walk(func(n *listNode) (remove, stop bool) {
		visited = append(visited, n.id)
		if n.id == 2 {
			return true, false
		}
		if n.id == 3 {
			return false, true
		}
		return false, false
	})

	assert.Equal(t, []int{1, 2, 3}, visited)
	assert.Equal(t, 3, l.Len()) // only id 2 was removed; id 4 was never reached
}
