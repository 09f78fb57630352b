// Package model defines the entities compared across two releases of a repository.
//
// Entities are built once by their constructors and never modified afterwards.
// Accessors that return slices hand out copies, so matchers can reorder them freely.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"slices"
	"strings"
)

// idLength is the number of hex characters kept from an identity hash.
const idLength = 16

// Repository is one snapshot of a source tree: the files that could be extracted
// under Root, in discovery order.
type Repository struct {
	root  string
	files []*File
}

// NewRepository builds a snapshot from already extracted files.
func NewRepository(root string, files []*File) *Repository {
	return &Repository{root: root, files: slices.Clone(files)}
}

// Root returns the directory the snapshot was scanned from.
func (r *Repository) Root() string { return r.root }

// Files returns the snapshot's files in discovery order.
func (r *Repository) Files() []*File { return slices.Clone(r.files) }

// Import is a single imported name of a file.
type Import struct {
	Name    string
	Alias   string
	Content string // canonical statement, e.g. "from os import path as p"
}

// File is one source file of a snapshot, identified by its relative path.
type File struct {
	path    string
	content string
	methods []*Method
	imports []Import
}

// NewFile builds a file. path is relative to the snapshot root and uses forward slashes.
func NewFile(relPath, content string, methods []*Method, imports []Import) *File {
	return &File{
		path:    relPath,
		content: content,
		methods: slices.Clone(methods),
		imports: slices.Clone(imports),
	}
}

// Path returns the repo-relative path.
func (f *File) Path() string { return f.path }

// Name returns the last element of the path.
func (f *File) Name() string { return path.Base(f.path) }

// Content returns the raw file text.
func (f *File) Content() string { return f.content }

// Methods returns the file's functions and methods in extraction order.
func (f *File) Methods() []*Method { return slices.Clone(f.methods) }

// Imports returns the file's imports in source order.
func (f *File) Imports() []Import { return slices.Clone(f.imports) }

// MethodNames returns the set of method names (without class) defined in the file.
func (f *File) MethodNames() map[string]struct{} {
	names := make(map[string]struct{}, len(f.methods))
	for _, m := range f.methods {
		names[m.name] = struct{}{}
	}
	return names
}

// ID returns the identity hash of the file, derived from its path.
func (f *File) ID() string { return hashKey(f.path) }

// Equal reports whether both files have the same relative path.
func (f *File) Equal(other *File) bool {
	return other != nil && f.path == other.path
}

// hashKey returns a stable truncated SHA-256 of the key parts.
func hashKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])[:idLength]
}
