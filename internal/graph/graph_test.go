package graph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sample() *Graph {
	return Build(map[string][]string{
		"Page.vue":   {"Button.vue", "Card.vue"},
		"Card.vue":   {"Button.vue", "Icon.vue"},
		"App.vue":    {"Page.vue"},
		"Button.vue": {"Button.vue"},
	})
}

func TestBuild(t *testing.T) {
	t.Parallel()
	g := sample()

	assert.Equal(t, []string{"App.vue", "Button.vue", "Card.vue", "Icon.vue", "Page.vue"}, g.Files())
	assert.Equal(t, []string{"Card.vue", "Page.vue"}, g.Dependents("Button.vue"))
	assert.Equal(t, []string{"Button.vue", "Card.vue"}, g.Dependencies("Page.vue"))
	assert.Empty(t, g.Dependencies("Button.vue"), "self imports are dropped")
	assert.Equal(t, []string{}, g.Dependents("Unknown.vue"))
	assert.Equal(t, []string{}, g.Dependencies("Unknown.vue"))
}

func TestEdges(t *testing.T) {
	t.Parallel()
	g := Build(map[string][]string{"A": {"B", "C"}, "B": {"C"}})
	assert.Equal(t, []Edge{
		{Dependency: "B", Dependent: "A"},
		{Dependency: "C", Dependent: "A"},
		{Dependency: "C", Dependent: "B"},
	}, g.Edges())
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	g := sample()
	g.Update("Page.vue", []string{"Icon.vue"})

	assert.Equal(t, []string{"Card.vue"}, g.Dependents("Button.vue"))
	assert.Equal(t, []string{"Card.vue", "Page.vue"}, g.Dependents("Icon.vue"))
}

func TestAffected(t *testing.T) {
	t.Parallel()
	g := sample()
	assert.Equal(t, []string{"App.vue", "Card.vue", "Icon.vue", "Page.vue"}, g.Affected("Icon.vue"))
	assert.Equal(t, []string{"App.vue"}, g.Affected("App.vue"))
	assert.Equal(t, []string{"New.vue"}, g.Affected("New.vue"))
}

func TestConcurrentReads(t *testing.T) {
	t.Parallel()
	g := sample()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.Dependents("Button.vue")
			_ = g.Affected("Icon.vue")
		}()
	}
	g.Update("App.vue", []string{"Card.vue"})
	wg.Wait()
	assert.Equal(t, []string{"App.vue", "Page.vue"}, g.Dependents("Card.vue"))
}
