package flow

// registry maps edge ids to their running animation and remembers
// insertion order. It holds at most one animation per id.
type registry struct {
	byID  map[string]*animation
	order []string
}

func newRegistry() *registry {
	return &registry{byID: make(map[string]*animation)}
}

// put installs an animation. It reports false, changing nothing, if the id
// is already taken: the previous animation must be stopped first.
func (r *registry) put(a *animation) bool {
	if _, exists := r.byID[a.edgeID]; exists {
		return false
	}
	r.byID[a.edgeID] = a
	r.order = append(r.order, a.edgeID)
	return true
}

func (r *registry) get(id string) *animation {
	return r.byID[id]
}

// remove deletes id and returns what was registered under it.
func (r *registry) remove(id string) *animation {
	a, ok := r.byID[id]
	if !ok {
		return nil
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return a
}

// ids returns a copy of the registered ids in insertion order. Callers may
// mutate the registry while iterating over it.
func (r *registry) ids() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *registry) len() int {
	return len(r.order)
}
