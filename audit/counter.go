package audit

import "fmt"

// Counter hands out the sequential numbers used for consolidated
// filenames. It starts at 1 and is never reused or decremented within a
// run. State lives only for the run; nothing is persisted across
// processes beyond what the index files encode.
type Counter struct {
	next int
}

// NewCounter returns a counter whose first Next() is 1.
func NewCounter() *Counter {
	return &Counter{next: 1}
}

// Next returns the next sequence number and advances the counter.
func (c *Counter) Next() int {
	n := c.next
	c.next++
	return n
}

// Assigned returns how many numbers have been handed out so far.
func (c *Counter) Assigned() int {
	return c.next - 1
}

// Name formats a consolidated filename for the next sequence number,
// keeping the original file's extension: 00001.jpg, 00002.png, ...
func (c *Counter) Name(ext string) string {
	return fmt.Sprintf("%05d%s", c.Next(), ext)
}
