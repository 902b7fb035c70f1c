package machine

import "beltgrid.ai/internal/sim/factory/model"

type Ingredient struct {
	Item  model.ItemType
	Count int
}

// Recipe converts an ingredient multiset into Output after TimeTicks actions.
// Recipes are shared and must not be mutated once loaded.
type Recipe struct {
	ID        string
	Station   Kind
	Inputs    []Ingredient
	Output    Ingredient
	TimeTicks int
}

// take removes the recipe's ingredients from the queue on side, consuming the
// earliest matching items and keeping the rest in order. It reports false and
// leaves the queue untouched when any ingredient is short.
func (r *Recipe) take(q *model.ItemsSet, side model.Side) bool {
	items := q.Items(side)
	need := make(map[model.ItemType]int, len(r.Inputs))
	for _, ing := range r.Inputs {
		need[ing.Item] += ing.Count
	}
	have := make(map[model.ItemType]int, len(need))
	for _, it := range items {
		have[it.Type]++
	}
	for t, n := range need {
		if have[t] < n {
			return false
		}
	}
	rest := make([]model.Item, 0, len(items))
	for _, it := range items {
		if need[it.Type] > 0 {
			need[it.Type]--
			continue
		}
		rest = append(rest, it)
	}
	q.Set(side, rest)
	return true
}

func (r *Recipe) emit(out *model.ItemsSet, side model.Side) {
	for i := 0; i < r.Output.Count; i++ {
		out.Push(side, model.Item{Type: r.Output.Item})
	}
}
