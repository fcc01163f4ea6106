package telemetry

import (
	"math/bits"
	"strings"
)

// ChangeSet is a set of tags.
type ChangeSet [4]uint64

// ChangeSetOf creates a ChangeSet from tags.
func ChangeSetOf(tags ...Tag) (c ChangeSet) {
	for _, tag := range tags {
		c.Add(tag)
	}
	return
}

// Add adds a tag.
func (c *ChangeSet) Add(tag Tag) {
	c[tag>>6] |= 1 << (tag & 63)
}

// Has returns true if tag is in the set.
func (c ChangeSet) Has(tag Tag) bool {
	return c[tag>>6]&(1<<(tag&63)) != 0
}

// Merge adds all tags of other.
func (c *ChangeSet) Merge(other ChangeSet) {
	for i := range c {
		c[i] |= other[i]
	}
}

// Len returns the number of tags.
func (c ChangeSet) Len() (n int) {
	for _, w := range c {
		n += bits.OnesCount64(w)
	}
	return
}

// Empty returns true if no tag is in the set.
func (c ChangeSet) Empty() bool {
	return c == ChangeSet{}
}

// Each calls fn for every tag in ascending order.
func (c ChangeSet) Each(fn func(Tag)) {
	for i, w := range c {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			fn(Tag(i<<6 | b))
			w &^= 1 << uint(b)
		}
	}
}

// Tags returns the tags in ascending order.
func (c ChangeSet) Tags() []Tag {
	tags := make([]Tag, 0, c.Len())
	c.Each(func(tag Tag) { tags = append(tags, tag) })
	return tags
}

// String implements fmt.Stringer.
func (c ChangeSet) String() string {
	names := make([]string, 0, c.Len())
	c.Each(func(tag Tag) { names = append(names, tag.Name()) })
	return "{" + strings.Join(names, ",") + "}"
}

// Update carries the fields decoded from one frame.
// Only the fields listed in Changes are meaningful in Values.
type Update struct {
	Changes ChangeSet
	Values  State
}

// Reset clears the update.
func (u *Update) Reset() {
	*u = Update{}
}

// Merge folds a later update in, later values win.
func (u *Update) Merge(later *Update) {
	later.Changes.Each(func(tag Tag) {
		later.Values.copyField(&u.Values, tag)
	})
	u.Changes.Merge(later.Changes)
}
