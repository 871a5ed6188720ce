// Package library models the tracked book collection and reconciles it with
// fresh device scans.
package library

import "time"

// Book is a local-or-remote identity and display record. Identity is
// deliberately partial: a device-scanned book carries a DeviceID but no
// LibraryID, a book added from the local library carries the opposite, and
// the display path is all the two sides may share.
type Book struct {
	DeviceID  string
	LibraryID string
	Path      string
	Title     string
	Authors   []string
	Size      int64
	ModTime   time.Time
	Tags      []string
}

// Tier identifies which identifier class matched two books.
type Tier int

const (
	// TierNone means no shared identifier matched.
	TierNone Tier = iota
	// TierDeviceID matched on the device's internal document id.
	TierDeviceID
	// TierLibraryID matched on the local library id.
	TierLibraryID
	// TierPath matched on the display path.
	TierPath
)

func (t Tier) String() string {
	switch t {
	case TierDeviceID:
		return "device-id"
	case TierLibraryID:
		return "library-id"
	case TierPath:
		return "path"
	default:
		return "none"
	}
}

// MatchTier evaluates the three identity tiers in order and returns the first
// that matches. Each tier requires both sides to carry a non-empty value.
// The relation is reflexive and symmetric per tier but not transitive across
// tiers: A and B may share a device id while B and C share a library id, so
// A==B and B==C without A==C. That is accepted behavior, not a defect; the
// same on-device file represented with divergent identifiers on each side can
// appear twice in a merged collection.
func MatchTier(a, b Book) Tier {
	if a.DeviceID != "" && b.DeviceID != "" && a.DeviceID == b.DeviceID {
		return TierDeviceID
	}
	if a.LibraryID != "" && b.LibraryID != "" && a.LibraryID == b.LibraryID {
		return TierLibraryID
	}
	if a.Path != "" && b.Path != "" && a.Path != "/" && b.Path != "/" && a.Path == b.Path {
		return TierPath
	}
	return TierNone
}

// Equal reports whether any identity tier matches.
func Equal(a, b Book) bool {
	return MatchTier(a, b) != TierNone
}

// contains reports whether the collection holds a book equal to candidate.
func contains(collection []Book, candidate Book) bool {
	for _, book := range collection {
		if Equal(book, candidate) {
			return true
		}
	}
	return false
}
