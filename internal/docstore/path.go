package docstore

import (
	"fmt"
	"strings"
)

// Ref identifies a document by its slash-separated path, e.g.
// users/{userId}/steps/{dateId}. Paths alternate collection and document
// segments, so a valid document path has an even number of segments.
type Ref struct {
	Path       string
	Collection string
	ID         string
	Parent     string
}

// ParseRef validates path and splits it into collection, id and parent.
func ParseRef(path string) (Ref, error) {
	path = strings.Trim(path, "/")
	segments := strings.Split(path, "/")
	if path == "" || len(segments)%2 != 0 {
		return Ref{}, fmt.Errorf("invalid document path %q", path)
	}
	for _, s := range segments {
		if s == "" {
			return Ref{}, fmt.Errorf("invalid document path %q: empty segment", path)
		}
	}
	n := len(segments)
	return Ref{
		Path:       path,
		Collection: segments[n-2],
		ID:         segments[n-1],
		Parent:     strings.Join(segments[:n-2], "/"),
	}, nil
}

// Join builds a document path from alternating collection/id segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// ParentID returns the id of the parent document, or "" at the top level.
func (r Ref) ParentID() string {
	if r.Parent == "" {
		return ""
	}
	idx := strings.LastIndex(r.Parent, "/")
	return r.Parent[idx+1:]
}
