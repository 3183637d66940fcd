package visualization

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/inquest/internal/core/model"
)

func nodes(ids ...string) []model.GraphNode {
	out := make([]model.GraphNode, len(ids))
	for i, id := range ids {
		out[i] = model.GraphNode{ID: id}
	}
	return out
}

func edge(from, to string) model.GraphEdge {
	return model.GraphEdge{From: from, To: to}
}

func TestCommunities_DisconnectedTriangles(t *testing.T) {
	edges := []model.GraphEdge{
		edge("1", "2"), edge("2", "3"), edge("3", "1"),
		edge("4", "5"), edge("5", "6"), edge("6", "4"),
	}
	got := Communities(nodes("1", "2", "3", "4", "5", "6"), edges)

	assert.Equal(t, got["1"], got["2"])
	assert.Equal(t, got["2"], got["3"])
	assert.Equal(t, got["4"], got["5"])
	assert.Equal(t, got["5"], got["6"])
	assert.NotEqual(t, got["1"], got["4"])
	assert.Equal(t, 0, got["1"])
}

func TestCommunities_IsolatedAndDangling(t *testing.T) {
	got := Communities(nodes("a", "b", "c"), []model.GraphEdge{edge("a", "b"), edge("b", "zzz"), edge("c", "c")})
	assert.Equal(t, got["a"], got["b"])
	assert.NotEqual(t, got["a"], got["c"])
	assert.Len(t, got, 3)

	assert.Empty(t, Communities(nil, nil))
}
