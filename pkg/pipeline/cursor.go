package pipeline

// Cursor walks the segments matched in one stage in match order. It is finite
// and can be restarted with Reset.
type Cursor struct {
	scoped *Scoped
	index  int
}

func newCursor(s *Scoped) *Cursor {
	return &Cursor{scoped: s}
}

// Next returns the next untested segment. ok is false once every segment
// has been returned.
func (c *Cursor) Next() (name string, result StageResult, ok bool) {
	if c.index >= c.scoped.Len() {
		return "", nil, false
	}
	name = c.scoped.names[c.index]
	c.index++
	return name, c.scoped.results[name], true
}

// Reset rewinds the cursor to the first segment.
func (c *Cursor) Reset() {
	c.index = 0
}

// Remaining returns the number of untested segments.
func (c *Cursor) Remaining() int {
	return c.scoped.Len() - c.index
}

// Find checks the remaining segments in order and returns the first one
// accept reports true for. The cursor is reset afterwards, whether or not a
// segment was found.
func (c *Cursor) Find(accept func(name string, result StageResult) bool) (string, bool) {
	defer c.Reset()

	for {
		name, result, ok := c.Next()
		if !ok {
			return "", false
		}
		if accept(name, result) {
			return name, true
		}
	}
}
