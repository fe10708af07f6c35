package clockx

// Clock is a CLOCK (second-chance) replacer over slot ids [0..capacity).
// A slot is tracked once touched; only tracked, evictable slots can be chosen
// as victims.
type Clock struct {
	ref       []bool
	evictable []bool
	present   []bool
	hand      int
	size      int // tracked and evictable
}

func New(capacity int) *Clock {
	if capacity <= 0 {
		capacity = 1
	}
	return &Clock{
		ref:       make([]bool, capacity),
		evictable: make([]bool, capacity),
		present:   make([]bool, capacity),
	}
}

func (c *Clock) Capacity() int { return len(c.ref) }

func (c *Clock) valid(id int) bool { return id >= 0 && id < len(c.ref) }

// Touch tracks id and sets its reference bit.
func (c *Clock) Touch(id int) {
	if !c.valid(id) {
		return
	}
	c.present[id] = true
	c.ref[id] = true
}

// Present reports whether id is tracked.
func (c *Clock) Present(id int) bool {
	return c.valid(id) && c.present[id]
}

// SetEvictable flips whether a tracked id may be chosen by Evict.
// Untracked ids are ignored.
func (c *Clock) SetEvictable(id int, evictable bool) {
	if !c.valid(id) || !c.present[id] {
		return
	}
	if c.evictable[id] == evictable {
		return
	}

	c.evictable[id] = evictable
	if evictable {
		c.size++
	} else {
		c.size--
	}
}

// Evict sweeps from the hand, clearing reference bits, and untracks the first
// evictable id whose bit is already clear.
func (c *Clock) Evict() (id int, ok bool) {
	n := len(c.ref)
	if n == 0 || c.size == 0 {
		return -1, false
	}

	// two sweeps always suffice: the first clears every ref bit
	for range 2 * n {
		idx := c.hand
		c.hand = (c.hand + 1) % n

		if !c.present[idx] || !c.evictable[idx] {
			continue
		}
		if c.ref[idx] {
			c.ref[idx] = false
			continue
		}
		c.untrack(idx)
		return idx, true
	}
	return -1, false
}

// Remove untracks id.
func (c *Clock) Remove(id int) {
	if !c.valid(id) || !c.present[id] {
		return
	}
	c.untrack(id)
}

// Reset untracks every id and parks the hand at 0.
func (c *Clock) Reset() {
	clear(c.ref)
	clear(c.evictable)
	clear(c.present)
	c.hand = 0
	c.size = 0
}

func (c *Clock) untrack(id int) {
	if c.evictable[id] {
		c.size--
	}
	c.present[id] = false
	c.evictable[id] = false
	c.ref[id] = false
}

func (c *Clock) Size() int { return c.size }
