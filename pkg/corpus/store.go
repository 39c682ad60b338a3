package corpus

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// Store is an immutable collection of documents in load order
type Store struct {
	docs   []*Document
	byID   map[string]*Document
	byName map[string]*Document
}

// New builds a store from documents already in hand. Documents keep the
// given order. A repeated ID is a *DuplicateDocumentError and no store is
// returned.
func New(docs ...*Document) (*Store, error) {
	s := &Store{
		docs:   make([]*Document, 0, len(docs)),
		byID:   make(map[string]*Document, len(docs)),
		byName: make(map[string]*Document, len(docs)),
	}

	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if first, exists := s.byID[doc.ID]; exists {
			return nil, &DuplicateDocumentError{ID: doc.ID, Path: doc.Path, First: first.Path}
		}
		s.byID[doc.ID] = doc
		s.docs = append(s.docs, doc)

		// first document in load order owns a shared name
		if doc.Name != "" {
			if _, taken := s.byName[doc.Name]; !taken {
				s.byName[doc.Name] = doc
			}
		}
	}

	return s, nil
}

// Get returns the document with the given ID
func (s *Store) Get(id string) (*Document, error) {
	if doc, ok := s.byID[id]; ok {
		return doc, nil
	}
	return nil, &NotFoundError{Ref: id}
}

// ByName returns the first document, in load order, declaring the given
// frontmatter name
func (s *Store) ByName(name string) (*Document, error) {
	if doc, ok := s.byName[name]; ok {
		return doc, nil
	}
	return nil, &NotFoundError{Ref: name}
}

// Resolve looks a reference up as an ID, then as a normalized path, then as
// a name
func (s *Store) Resolve(ref string) (*Document, error) {
	if doc, ok := s.byID[ref]; ok {
		return doc, nil
	}
	if doc, ok := s.byID[DocumentID(ref)]; ok {
		return doc, nil
	}
	if doc, ok := s.byName[ref]; ok {
		return doc, nil
	}
	return nil, &NotFoundError{Ref: ref}
}

// All returns every document in load order. The slice is a copy; the
// documents are shared and must not be modified.
func (s *Store) All() []*Document {
	out := make([]*Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Len returns the number of documents
func (s *Store) Len() int {
	return len(s.docs)
}

// Match returns the documents whose ID matches a glob pattern such as
// "qa-*" or "**/api-*". '/' separates segments; '*' stays within one.
func (s *Store) Match(pattern string) ([]*Document, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return s.All(), nil
	}

	g, err := glob.Compile(strings.ToLower(pattern), '/')
	if err != nil {
		return nil, errors.Wrapf(err, "invalid pattern %q", pattern)
	}

	var out []*Document
	for _, doc := range s.docs {
		if g.Match(doc.ID) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Kinds returns the documents of the given kinds in load order
func (s *Store) Kinds(kinds ...Kind) []*Document {
	if len(kinds) == 0 {
		return s.All()
	}
	want := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}

	var out []*Document
	for _, doc := range s.docs {
		if want[doc.Kind] {
			out = append(out, doc)
		}
	}
	return out
}
