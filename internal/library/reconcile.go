package library

import "remsync/internal/device"

// Reconcile merges an existing local collection with a freshly scanned remote
// one. Every remote book absent from the local side is appended to the merged
// view; every local book absent from the remote side is appended to the
// returned remote view. The union is non-destructive: nothing is ever
// removed, so a file deleted on-device while still tracked locally persists
// in the merged view until some other operation reconciles it.
func Reconcile(local, remote []Book) (merged, remoteView []Book) {
	merged = append([]Book(nil), local...)
	remoteView = append([]Book(nil), remote...)

	for _, book := range remote {
		if !contains(merged, book) {
			merged = append(merged, book)
		}
	}
	for _, book := range local {
		if !contains(remoteView, book) {
			remoteView = append(remoteView, book)
		}
	}
	return merged, remoteView
}

// BooksFromTree flattens a crawled device tree into remote book records.
// Remote books carry a device id and a display path but no library id.
func BooksFromTree(tree device.Tree) []Book {
	files := tree.AllFiles("")
	books := make([]Book, 0, len(files))
	for _, file := range files {
		title := file.Entry.Name
		if title == "" {
			title = file.Path
		}
		books = append(books, Book{
			DeviceID: file.Entry.ID,
			Path:     file.Path,
			Title:    title,
		})
	}
	return books
}
