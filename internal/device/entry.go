package device

import "encoding/json"

// Entry type tags as published by the device listing API.
const (
	TypeCollection = "CollectionType"
	TypeDocument   = "DocumentType"
)

// Entry is an immutable snapshot of one file or folder on the device,
// produced only by parsing a listing response.
type Entry struct {
	ID       string
	ParentID string
	Name     string
	Type     string
	FileType string
}

// IsFolder reports whether the entry is a collection.
func (e Entry) IsFolder() bool {
	return e.Type == TypeCollection
}

// listingEntry mirrors the wire shape of GET /documents/{id} elements.
// "VissibleName" is the field name the device actually publishes; it must be
// matched as spelled, not corrected.
type listingEntry struct {
	ID          string `json:"ID"`
	Parent      string `json:"Parent"`
	VisibleName string `json:"VissibleName"`
	Type        string `json:"Type"`
	FileType    string `json:"fileType"`
}

func parseListing(data []byte) ([]Entry, error) {
	var raw []listingEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		entryType := item.Type
		if entryType == "" {
			entryType = TypeDocument
		}
		entries = append(entries, Entry{
			ID:       item.ID,
			ParentID: item.Parent,
			Name:     item.VisibleName,
			Type:     entryType,
			FileType: item.FileType,
		})
	}
	return entries, nil
}
