package catalog

import (
	"context"
	"fmt"
)

// FolderMimeType marks a node as a folder in drive listings.
const FolderMimeType = "application/vnd.google-apps.folder"

// DefaultDocumentType is the only document type accepted at chapter level
// unless overridden with WithDocumentType.
const DefaultDocumentType = "application/pdf"

// Kind distinguishes folders from documents.
type Kind int

const (
	KindFolder Kind = iota
	KindDocument
)

func (k Kind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "document"
}

// Node is one entry of a remote listing. Immutable once fetched.
type Node struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// Kind derives the node kind from its MIME type.
func (n Node) Kind() Kind {
	if n.MimeType == FolderMimeType {
		return KindFolder
	}
	return KindDocument
}

// Level is a tier of the class → subject → chapter hierarchy.
type Level int

const (
	LevelClass Level = iota
	LevelSubject
	LevelChapter
)

// Depth is the number of levels in a complete selection.
const Depth = 3

func (l Level) String() string {
	switch l {
	case LevelClass:
		return "class"
	case LevelSubject:
		return "subject"
	case LevelChapter:
		return "chapter"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

func (l Level) valid() bool { return l >= LevelClass && l <= LevelChapter }

// Lister returns the children of a folder. An empty folderID lists the root.
type Lister interface {
	ListChildren(ctx context.Context, folderID string) ([]Node, error)
}

// Fetch is a listing request tagged with the sequence number of the level
// it will populate.
type Fetch struct {
	Level    Level
	Seq      uint64
	FolderID string
}

// Listing is the outcome of a Fetch, to be handed back to Resolver.Apply.
type Listing struct {
	Level Level
	Seq   uint64
	Nodes []Node
	Err   error
}

// Run performs the fetch. It does not touch resolver state and is safe to
// call from any goroutine.
func (f Fetch) Run(ctx context.Context, l Lister) Listing {
	nodes, err := l.ListChildren(ctx, f.FolderID)
	return Listing{Level: f.Level, Seq: f.Seq, Nodes: nodes, Err: err}
}
