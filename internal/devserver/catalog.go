package devserver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abhisek/quizcraft/internal/catalog"
)

// defaultPageSize is small so clients exercise pagination against the
// sample tree.
const defaultPageSize = 4

// driveTree is an in-memory stand-in for the shared drive the catalog is
// read from. Class and subject levels are folders; chapters are PDFs.
type driveTree struct {
	children map[string][]catalog.Node // parent id -> children, "" is the root
	nodes    map[string]catalog.Node
	parents  map[string]string
	pageSize int
}

var sampleSyllabus = map[string][]string{
	"Physics": {
		"Electric Charges and Fields",
		"Current Electricity",
		"Ray Optics and Optical Instruments",
		"Wave Optics",
		"Dual Nature of Radiation and Matter",
		"Atoms",
	},
	"Chemistry": {
		"Solutions",
		"Electrochemistry",
		"Chemical Kinetics",
		"The d- and f-Block Elements",
	},
	"Mathematics": {
		"Relations and Functions",
		"Matrices",
		"Determinants",
		"Continuity and Differentiability",
		"Integrals",
	},
}

var sampleClasses = []string{"X", "XI", "XII"}

var sampleSubjects = []string{"Physics", "Chemistry", "Mathematics"}

func newSampleTree(pageSize int) *driveTree {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	t := &driveTree{
		children: make(map[string][]catalog.Node),
		nodes:    make(map[string]catalog.Node),
		parents:  make(map[string]string),
		pageSize: pageSize,
	}
	for _, class := range sampleClasses {
		classID := "class-" + strings.ToLower(class)
		t.add("", catalog.Node{ID: classID, Name: "Class " + class, MimeType: catalog.FolderMimeType})
		for _, subject := range sampleSubjects {
			subjectID := classID + "-" + strings.ToLower(subject)
			t.add(classID, catalog.Node{ID: subjectID, Name: subject, MimeType: catalog.FolderMimeType})
			for i, chapter := range sampleSyllabus[subject] {
				t.add(subjectID, catalog.Node{
					ID:       subjectID + "-ch" + strconv.Itoa(i+1),
					Name:     fmt.Sprintf("Chapter %d - %s.pdf", i+1, chapter),
					MimeType: catalog.DefaultDocumentType,
				})
			}
			// A stray non-PDF the client is expected to filter out.
			t.add(subjectID, catalog.Node{
				ID:       subjectID + "-notes",
				Name:     "Teacher notes",
				MimeType: "application/vnd.google-apps.document",
			})
		}
	}
	return t
}

func (t *driveTree) add(parent string, n catalog.Node) {
	t.children[parent] = append(t.children[parent], n)
	t.nodes[n.ID] = n
	t.parents[n.ID] = parent
}

// list returns one page of a folder's children and the token of the next
// page, if any.
func (t *driveTree) list(folderID, pageToken string) ([]catalog.Node, string, error) {
	if folderID != "" {
		n, ok := t.nodes[folderID]
		if !ok {
			return nil, "", errNotFound
		}
		if n.Kind() != catalog.KindFolder {
			return nil, "", fmt.Errorf("%s is not a folder", folderID)
		}
	}

	start := 0
	if pageToken != "" {
		v, err := strconv.Atoi(pageToken)
		if err != nil || v < 0 {
			return nil, "", fmt.Errorf("invalid page token %q", pageToken)
		}
		start = v
	}

	all := t.children[folderID]
	if start >= len(all) {
		return []catalog.Node{}, "", nil
	}
	end := min(start+t.pageSize, len(all))
	next := ""
	if end < len(all) {
		next = strconv.Itoa(end)
	}
	return all[start:end], next, nil
}

// lineage returns the class, subject and chapter names for a chapter id.
func (t *driveTree) lineage(chapterID string) (class, subject, chapter string, ok bool) {
	ch, ok := t.nodes[chapterID]
	if !ok || ch.Kind() != catalog.KindDocument {
		return "", "", "", false
	}
	subj := t.nodes[t.parents[chapterID]]
	cls := t.nodes[t.parents[subj.ID]]
	return strings.TrimPrefix(cls.Name, "Class "), subj.Name, strings.TrimSuffix(ch.Name, ".pdf"), true
}
