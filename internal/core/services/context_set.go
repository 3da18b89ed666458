package services

// ContextSet holds the highlight IDs the user has put into the chat context.
// Membership has set semantics; IDs are listed in insertion order.
type ContextSet struct {
	ids     []string
	members map[string]struct{}
}

// NewContextSet creates an empty context set.
func NewContextSet() *ContextSet {
	return &ContextSet{members: make(map[string]struct{})}
}

// Add inserts id. Returns false if it was already present.
func (c *ContextSet) Add(id string) bool {
	if _, ok := c.members[id]; ok {
		return false
	}
	c.members[id] = struct{}{}
	c.ids = append(c.ids, id)
	return true
}

// Remove deletes id. Returns false if it was not present.
func (c *ContextSet) Remove(id string) bool {
	if _, ok := c.members[id]; !ok {
		return false
	}
	delete(c.members, id)
	for i, existing := range c.ids {
		if existing == id {
			c.ids = append(c.ids[:i], c.ids[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether id is present.
func (c *ContextSet) Contains(id string) bool {
	_, ok := c.members[id]
	return ok
}

// IDs returns a copy of the members in insertion order.
func (c *ContextSet) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Len returns the number of members.
func (c *ContextSet) Len() int {
	return len(c.ids)
}

// Clear empties the set.
func (c *ContextSet) Clear() {
	c.ids = nil
	c.members = make(map[string]struct{})
}
