package renderer

// Unwind collects cleanup functions for a multi-step GL allocation so a
// failure halfway through can release what was already created.
type Unwind []func()

func (u *Unwind) Add(cleanup func()) {
	*u = append(*u, cleanup)
}

// Unwind runs the cleanups in reverse order and empties the list.
func (u *Unwind) Unwind() {
	for i := len(*u) - 1; i >= 0; i-- {
		(*u)[i]()
	}
	*u = (*u)[:0]
}

// Discard forgets the cleanups once the allocation succeeded.
func (u *Unwind) Discard() {
	*u = (*u)[:0]
}
