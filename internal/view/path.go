package view

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment addresses one child of a node: by key, or by index for unkeyed
// children.
type Segment struct {
	Key   string
	Index int
}

// KeySegment addresses a keyed child.
func KeySegment(key string) Segment {
	return Segment{Key: key, Index: -1}
}

// IndexSegment addresses an unkeyed child by position.
func IndexSegment(i int) Segment {
	return Segment{Index: i}
}

// Keyed reports whether the segment addresses a child by key.
func (s Segment) Keyed() bool {
	return s.Key != ""
}

// String renders "key" or "#index".
func (s Segment) String() string {
	if s.Keyed() {
		return s.Key
	}
	return "#" + strconv.Itoa(s.Index)
}

// Identity returns the segment of a description at position i of its parent's
// child list.
func Identity(n *Node, i int) Segment {
	if n != nil && n.Key != "" {
		return KeySegment(n.Key)
	}
	return IndexSegment(i)
}

// Path is a sequence of segments from the root container. The empty path is
// the root itself.
type Path []Segment

// RootPath addresses the root container.
var RootPath = Path{}

// Child returns a new path extended by seg. p is not modified.
func (p Path) Child(seg Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// Parent returns the path without its last segment. The root's parent is the root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return p
	}
	return p[:len(p)-1]
}

// IsRoot reports whether p addresses the root container.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// String renders the path as "/a/#1/b"; the root renders as "/".
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range p {
		b.WriteByte('/')
		b.WriteString(s.String())
	}
	return b.String()
}

// Equal reports whether two paths address the same position.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// ParsePath parses the String form. Segments of the form "#N" are indices;
// everything else is a key.
func ParsePath(s string) (Path, error) {
	if s == "" || s == "/" {
		return RootPath, nil
	}
	if !strings.HasPrefix(s, "/") {
		return nil, fmt.Errorf("path %q: must start with /", s)
	}
	parts := strings.Split(s[1:], "/")
	out := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("path %q: empty segment", s)
		}
		if strings.HasPrefix(part, "#") {
			i, err := strconv.Atoi(part[1:])
			if err != nil || i < 0 {
				return nil, fmt.Errorf("path %q: bad index segment %q", s, part)
			}
			out = append(out, IndexSegment(i))
			continue
		}
		out = append(out, KeySegment(part))
	}
	return out, nil
}

// MustParsePath is ParsePath for constant paths; it panics on error.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}
