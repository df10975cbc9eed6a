package frontier_test

import (
	"testing"

	"github.com/rohmanhakim/site-spider/internal/frontier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queueItem struct {
	name  string
	depth int
}

func TestDepthQueue_OrdersByDepthThenInsertion(t *testing.T) {
	queue := frontier.NewDepthQueue(func(i queueItem) int { return i.depth })
	assert.Equal(t, 0, queue.Size())

	for _, item := range []queueItem{
		{"a", 0}, {"b", 1}, {"c", 2}, {"d", 1}, {"e", 0}, {"f", 2},
	} {
		queue.Enqueue(item)
	}
	require.Equal(t, 6, queue.Size())

	head, ok := queue.Peek()
	require.True(t, ok)
	assert.Equal(t, "a", head.name)

	var order []string
	for {
		item, ok := queue.Dequeue()
		if !ok {
			break
		}
		order = append(order, item.name)
	}
	assert.Equal(t, []string{"a", "e", "b", "d", "c", "f"}, order)
	assert.Equal(t, 0, queue.Size())

	_, ok = queue.Peek()
	assert.False(t, ok)
}

func TestSet(t *testing.T) {
	set := frontier.NewSet[string]()
	assert.Equal(t, 0, set.Size())

	set.Add("a")
	set.Add("a")
	set.Add("b")
	assert.Equal(t, 2, set.Size())
	assert.True(t, set.Contains("a"))
	assert.ElementsMatch(t, []string{"a", "b"}, set.Items())

	set.Remove("a")
	assert.False(t, set.Contains("a"))
	assert.Equal(t, 1, set.Size())
}
