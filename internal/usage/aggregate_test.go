package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsedIndices(t *testing.T) {
	t.Parallel()
	a := &Element{tag: "a"}
	b := &Element{tag: "b"}
	channels := []string{"a", "b", "c", "a"}
	matchTag := func(el *Element, ch string) bool { return el.tag == ch }

	t.Run("no instances", func(t *testing.T) {
		got := UsedIndices(nil, channels, matchTag)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("union across instances", func(t *testing.T) {
		assert.Equal(t, []int{0, 1, 3}, UsedIndices([]*Element{b, a}, channels, matchTag))
	})

	t.Run("no channels", func(t *testing.T) {
		assert.Empty(t, UsedIndices([]*Element{a}, []string{}, matchTag))
	})

	t.Run("stops at first matching instance", func(t *testing.T) {
		calls := 0
		counting := func(el *Element, ch string) bool {
			calls++
			return true
		}
		UsedIndices([]*Element{a, b}, []string{"x"}, counting)
		assert.Equal(t, 1, calls)
	})
}
