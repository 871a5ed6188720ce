// Package converter shells out to Calibre's ebook-convert to produce PDFs
// sized for a specific device model.
package converter

// Profile holds the page geometry and typography defaults for one device
// model. Page dimensions are inches, margin and font size are points.
type Profile struct {
	Model      string
	PageWidth  float64
	PageHeight float64
	MarginPt   int
	FontSizePt int
}

var profiles = map[string]Profile{
	"rm2":       {Model: "rm2", PageWidth: 6.2, PageHeight: 8.3, MarginPt: 36, FontSizePt: 18},
	"paper-pro": {Model: "paper-pro", PageWidth: 7.1, PageHeight: 9.4, MarginPt: 36, FontSizePt: 20},
	"pro-move":  {Model: "pro-move", PageWidth: 3.6, PageHeight: 6.4, MarginPt: 18, FontSizePt: 14},
}

// ProfileFor returns the conversion profile for a device model. Unknown
// models fall back to the paper-pro geometry.
func ProfileFor(model string) Profile {
	if profile, ok := profiles[model]; ok {
		return profile
	}
	fallback := profiles["paper-pro"]
	return fallback
}
