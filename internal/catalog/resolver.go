package catalog

import (
	"errors"
	"fmt"
)

// Status is the load state of one level's child list.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// LevelCache holds the selectable children for one level.
type LevelCache struct {
	Status Status
	Items  []Node
	// Seq is the tag of the most recent fetch issued for this level. It only
	// ever grows; clearing a level bumps it so in-flight fetches are dropped.
	Seq uint64
	Err error
}

// Slot is one position of the selection path.
type Slot struct {
	Node     Node
	Selected bool
}

// Selection is a completed class → subject → chapter path.
type Selection struct {
	Class   Node
	Subject Node
	Chapter Node
}

// ErrStateViolation is wrapped by every StateError.
var ErrStateViolation = errors.New("state violation")

// StateError reports a selection that broke the path invariant.
type StateError struct {
	Level  Level
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("select %s: %s", e.Level, e.Reason)
}

func (e *StateError) Unwrap() error { return ErrStateViolation }

// Option configures a Resolver.
type Option func(*Resolver)

// WithDocumentType sets the MIME type kept at chapter level.
func WithDocumentType(mime string) Option {
	return func(r *Resolver) {
		if mime != "" {
			r.docType = mime
		}
	}
}

// WithRootFolder sets the folder listed for the class level. Empty means the
// service's own root.
func WithRootFolder(id string) Option {
	return func(r *Resolver) { r.root = id }
}

// Resolver drives the three-level picker. Selecting a level clears every
// deeper level and starts the fetch for the next one. Responses are applied
// only when their tag matches the level's latest fetch, so a slow reply for
// an abandoned selection never overwrites the current one.
//
// A Resolver is not safe for concurrent use; Fetch.Run is the only part
// meant to run off the event loop.
type Resolver struct {
	docType string
	root    string
	path    [Depth]Slot
	caches  [Depth]LevelCache
}

// New creates a Resolver. Call RefreshRoot to start the first listing.
func New(opts ...Option) *Resolver {
	r := &Resolver{docType: DefaultDocumentType}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RefreshRoot starts the class-level fetch.
func (r *Resolver) RefreshRoot() Fetch {
	return r.begin(LevelClass, r.root)
}

// Select sets the slot at level to the node with id and clears every deeper
// slot. For the class and subject levels the returned Fetch loads the next
// level; it is nil at chapter level. The node name is taken from the
// level's cache when present.
func (r *Resolver) Select(level Level, id string) (*Fetch, error) {
	if !level.valid() {
		return nil, &StateError{Level: level, Reason: "no such level"}
	}
	if level > LevelClass && !r.path[level-1].Selected {
		return nil, &StateError{Level: level, Reason: fmt.Sprintf("%s not selected", level-1)}
	}
	if id == "" {
		return nil, &StateError{Level: level, Reason: "empty node id"}
	}

	node := Node{ID: id}
	for _, item := range r.caches[level].Items {
		if item.ID == id {
			node = item
			break
		}
	}

	r.path[level] = Slot{Node: node, Selected: true}
	for deeper := level + 1; deeper < Depth; deeper++ {
		r.path[deeper] = Slot{}
		r.clear(deeper)
	}

	if level == LevelChapter {
		return nil, nil
	}
	f := r.begin(level+1, id)
	return &f, nil
}

// Retry re-issues the fetch that populates level from the current parent
// selection.
func (r *Resolver) Retry(level Level) (Fetch, error) {
	if !level.valid() {
		return Fetch{}, &StateError{Level: level, Reason: "no such level"}
	}
	if level == LevelClass {
		return r.RefreshRoot(), nil
	}
	parent := r.path[level-1]
	if !parent.Selected {
		return Fetch{}, &StateError{Level: level, Reason: fmt.Sprintf("%s not selected", level-1)}
	}
	return r.begin(level, parent.Node.ID), nil
}

// Apply stores a listing if it answers the level's latest fetch. It reports
// whether the listing was applied; stale listings are dropped silently.
func (r *Resolver) Apply(l Listing) bool {
	if !l.Level.valid() {
		return false
	}
	c := &r.caches[l.Level]
	if l.Seq != c.Seq || c.Status != StatusLoading {
		return false
	}
	if l.Err != nil {
		c.Status = StatusError
		c.Items = nil
		c.Err = l.Err
		return true
	}
	c.Status = StatusReady
	c.Items = r.filter(l.Level, l.Nodes)
	c.Err = nil
	return true
}

// IsComplete reports whether all three levels are selected.
func (r *Resolver) IsComplete() bool {
	for _, s := range r.path {
		if !s.Selected {
			return false
		}
	}
	return true
}

// Selection returns the completed path.
func (r *Resolver) Selection() (Selection, bool) {
	if !r.IsComplete() {
		return Selection{}, false
	}
	return Selection{
		Class:   r.path[LevelClass].Node,
		Subject: r.path[LevelSubject].Node,
		Chapter: r.path[LevelChapter].Node,
	}, true
}

// Slot returns the selection at level.
func (r *Resolver) Slot(level Level) Slot {
	if !level.valid() {
		return Slot{}
	}
	return r.path[level]
}

// Cache returns a copy of the child list for level.
func (r *Resolver) Cache(level Level) LevelCache {
	if !level.valid() {
		return LevelCache{}
	}
	c := r.caches[level]
	c.Items = append([]Node(nil), c.Items...)
	return c
}

// DocumentType returns the MIME type accepted at chapter level.
func (r *Resolver) DocumentType() string { return r.docType }

func (r *Resolver) begin(level Level, folderID string) Fetch {
	c := &r.caches[level]
	c.Seq++
	c.Status = StatusLoading
	c.Items = nil
	c.Err = nil
	return Fetch{Level: level, Seq: c.Seq, FolderID: folderID}
}

func (r *Resolver) clear(level Level) {
	c := &r.caches[level]
	c.Seq++
	c.Status = StatusIdle
	c.Items = nil
	c.Err = nil
}

func (r *Resolver) filter(level Level, nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		switch {
		case level < LevelChapter && n.Kind() == KindFolder:
			out = append(out, n)
		case level == LevelChapter && n.Kind() == KindDocument && n.MimeType == r.docType:
			out = append(out, n)
		}
	}
	return out
}
