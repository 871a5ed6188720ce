package library

import (
	"testing"

	"remsync/internal/device"
)

func TestReconcileIsNonDestructive(t *testing.T) {
	local := []Book{
		{LibraryID: "lib-1", Path: "books/kept.pdf", Title: "Kept Locally"},
		{LibraryID: "lib-2", DeviceID: "dev-2", Path: "books/shared.pdf", Title: "Shared"},
	}
	remote := []Book{
		{DeviceID: "dev-2", Path: "books/shared.pdf", Title: "Shared"},
		{DeviceID: "dev-3", Path: "books/device-only.epub", Title: "Device Only"},
	}

	merged, remoteView := Reconcile(local, remote)

	if len(merged) != 3 {
		t.Fatalf("merged view has %d books, want 3: %+v", len(merged), merged)
	}
	if !contains(merged, Book{LibraryID: "lib-1"}) {
		t.Error("local-only book dropped from merged view")
	}
	if !contains(merged, Book{DeviceID: "dev-3"}) {
		t.Error("device-only book missing from merged view")
	}

	if len(remoteView) != 3 {
		t.Fatalf("remote view has %d books, want 3: %+v", len(remoteView), remoteView)
	}
	if !contains(remoteView, Book{LibraryID: "lib-1"}) {
		t.Error("local-only book missing from remote view")
	}
}

func TestReconcileDeduplicatesByAnyTier(t *testing.T) {
	local := []Book{{LibraryID: "lib-1", Path: "books/a.pdf"}}
	remote := []Book{{DeviceID: "dev-1", Path: "books/a.pdf"}}

	merged, remoteView := Reconcile(local, remote)
	if len(merged) != 1 {
		t.Fatalf("path-matched books duplicated in merged view: %+v", merged)
	}
	if len(remoteView) != 1 {
		t.Fatalf("path-matched books duplicated in remote view: %+v", remoteView)
	}
}

func TestReconcileEmptySides(t *testing.T) {
	merged, remoteView := Reconcile(nil, nil)
	if len(merged) != 0 || len(remoteView) != 0 {
		t.Fatalf("empty inputs produced books: %+v %+v", merged, remoteView)
	}
}

func TestBooksFromTree(t *testing.T) {
	tree := device.Tree{Nodes: []device.Node{
		{Entry: device.Entry{ID: "doc-1", Name: "Top.pdf", Type: device.TypeDocument}},
		{
			Entry: device.Entry{ID: "folder-1", Name: "Novels", Type: device.TypeCollection},
			Subtree: device.Tree{Nodes: []device.Node{
				{Entry: device.Entry{ID: "doc-2", Name: "Nested.epub", Type: device.TypeDocument}},
			}},
		},
	}}

	books := BooksFromTree(tree)
	if len(books) != 2 {
		t.Fatalf("got %d books, want 2: %+v", len(books), books)
	}
	if books[0].DeviceID != "doc-1" || books[0].Path != "Top.pdf" {
		t.Errorf("unexpected top-level book: %+v", books[0])
	}
	if books[1].DeviceID != "doc-2" || books[1].Path != "Novels/Nested.epub" {
		t.Errorf("unexpected nested book: %+v", books[1])
	}
	for _, book := range books {
		if book.LibraryID != "" {
			t.Errorf("device-scanned book %q must not carry a library id", book.Title)
		}
	}
}
