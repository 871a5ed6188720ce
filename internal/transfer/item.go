// Package transfer drives book batches through conversion and upload.
package transfer

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Item is one book in a transfer batch. When the item needs conversion the
// orchestrator fills ConvertedPath with a temporary PDF; the temp file is
// owned by the item and released exactly once after its upload attempt.
type Item struct {
	SourcePath    string
	DisplayName   string
	NeedsConvert  bool
	ConvertedPath string

	release sync.Once
}

// NewItem builds a transfer item. Conversion is needed when the configured
// preferred format is pdf and the source is an EPUB.
func NewItem(sourcePath, displayName, preferredFormat string) *Item {
	name := filepath.Base(displayName)
	if name == "" || name == "." {
		name = filepath.Base(sourcePath)
	}
	needsConvert := strings.EqualFold(preferredFormat, "pdf") &&
		strings.EqualFold(filepath.Ext(sourcePath), ".epub")
	return &Item{
		SourcePath:   sourcePath,
		DisplayName:  name,
		NeedsConvert: needsConvert,
	}
}

// UploadPath is the file actually sent to the device.
func (it *Item) UploadPath() string {
	if it.ConvertedPath != "" {
		return it.ConvertedPath
	}
	return it.SourcePath
}

// UploadName is the visible name sent to the device. A converted item swaps
// the extension for .pdf.
func (it *Item) UploadName() string {
	if it.ConvertedPath == "" {
		return it.DisplayName
	}
	return strings.TrimSuffix(it.DisplayName, filepath.Ext(it.DisplayName)) + ".pdf"
}

// Release removes the converted temp file, if any. Safe to call more than
// once; only the first call deletes.
func (it *Item) Release() {
	it.release.Do(func() {
		if it.ConvertedPath != "" {
			_ = os.Remove(it.ConvertedPath)
		}
	})
}
