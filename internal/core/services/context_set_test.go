package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestContextSet_AddIsIdempotent(t *testing.T) {
	set := NewContextSet()

	assert.True(t, set.Add("a"))
	assert.False(t, set.Add("a"))
	assert.True(t, set.Add("b"))

	assert.Equal(t, []string{"a", "b"}, set.IDs())
	assert.Equal(t, 2, set.Len())
}

func TestContextSet_Remove(t *testing.T) {
	set := NewContextSet()
	set.Add("a")
	set.Add("b")
	set.Add("c")

	assert.True(t, set.Remove("b"))
	assert.False(t, set.Remove("b"))
	assert.False(t, set.Contains("b"))
	assert.Equal(t, []string{"a", "c"}, set.IDs())
}

func TestContextSet_IDsIsACopy(t *testing.T) {
	set := NewContextSet()
	set.Add("a")

	ids := set.IDs()
	ids[0] = "changed"

	assert.Equal(t, []string{"a"}, set.IDs())
}

func TestContextSet_Clear(t *testing.T) {
	set := NewContextSet()
	set.Add("a")
	set.Clear()

	assert.Zero(t, set.Len())
	assert.False(t, set.Contains("a"))
}

// The set behaves like an insertion-ordered set under any sequence of adds and removes.
func TestContextSet_SetSemanticsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		set := NewContextSet()
		var model []string
		ids := []string{"a", "b", "c", "d", "e"}

		steps := rapid.IntRange(1, 60).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.SampledFrom(ids).Draw(rt, fmt.Sprintf("id_%d", i))
			idx := indexOf(model, id)

			if rapid.Bool().Draw(rt, fmt.Sprintf("add_%d", i)) {
				added := set.Add(id)
				if added != (idx < 0) {
					rt.Fatalf("Add(%s) = %v with model %v", id, added, model)
				}
				if idx < 0 {
					model = append(model, id)
				}
				continue
			}

			removed := set.Remove(id)
			if removed != (idx >= 0) {
				rt.Fatalf("Remove(%s) = %v with model %v", id, removed, model)
			}
			if idx >= 0 {
				model = append(model[:idx], model[idx+1:]...)
			}
		}

		got := set.IDs()
		if fmt.Sprint(got) != fmt.Sprint(model) && !(len(got) == 0 && len(model) == 0) {
			rt.Fatalf("IDs = %v, want %v", got, model)
		}
	})
}

func indexOf(list []string, id string) int {
	for i, v := range list {
		if v == id {
			return i
		}
	}
	return -1
}
