package epub

import (
	"os"
	"strings"
	"testing"

	"github.com/beevik/etree"
)

func readFileFromMap(entries map[string]string) func(string) ([]byte, error) {
	return func(name string) ([]byte, error) {
		if content, ok := entries[name]; ok {
			return []byte(content), nil
		}
		return nil, os.ErrNotExist
	}
}

func TestInjectCoverPageAddsManifestSpineGuide(t *testing.T) {
	entries := defaultEntries()
	patched, newFiles, err := injectCoverPage(readFileFromMap(entries), "OEBPS/content.opf", []byte(testOPF))
	if err != nil {
		t.Fatalf("injectCoverPage: %v", err)
	}
	if patched == nil {
		t.Fatal("expected a patched package document")
	}
	page, ok := newFiles["OEBPS/rm_cover.xhtml"]
	if !ok {
		t.Fatalf("expected new cover page keyed relative to the package document, got %v", keys(newFiles))
	}
	if !strings.Contains(string(page), `src="cover.jpg"`) {
		t.Fatalf("cover page should embed the cover image, got %s", page)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(patched); err != nil {
		t.Fatalf("patched document does not parse: %v", err)
	}
	root := doc.Root()

	if root.SelectAttrValue("xmlns", "") != "http://www.idpf.org/2007/opf" {
		t.Fatal("package namespace declaration was not preserved")
	}

	manifest := root.SelectElement("manifest")
	items := manifest.SelectElements("item")
	var pageItems int
	for _, item := range items {
		if item.SelectAttrValue("id", "") == coverPageID {
			pageItems++
		}
	}
	if pageItems != 1 {
		t.Fatalf("expected exactly one injected manifest item, got %d", pageItems)
	}

	spine := root.SelectElement("spine")
	refs := spine.SelectElements("itemref")
	if len(refs) != 2 {
		t.Fatalf("expected 2 spine refs, got %d", len(refs))
	}
	if refs[0].SelectAttrValue("idref", "") != coverPageID {
		t.Fatalf("injected page must be first in reading order, got %q", refs[0].SelectAttrValue("idref", ""))
	}

	guide := root.SelectElement("guide")
	if guide == nil {
		t.Fatal("expected a guide element")
	}
	ref := guide.SelectElement("reference")
	if ref == nil || ref.SelectAttrValue("type", "") != "cover" {
		t.Fatal("expected a guide reference of type cover")
	}
}

func TestInjectCoverPageNoOpWhenFirstPageShowsCover(t *testing.T) {
	entries := defaultEntries()
	entries["OEBPS/page1.xhtml"] = `<html><body><img src="cover.jpg"/></body></html>`
	patched, newFiles, err := injectCoverPage(readFileFromMap(entries), "OEBPS/content.opf", []byte(testOPF))
	if err != nil {
		t.Fatalf("injectCoverPage: %v", err)
	}
	if patched != nil || len(newFiles) != 0 {
		t.Fatal("expected no-op when the first page already references the cover")
	}
}

func TestInjectCoverPageNoOpWithoutDeclaredCover(t *testing.T) {
	opf := strings.Replace(testOPF, `<meta name="cover" content="cover-img"/>`, "", 1)
	patched, newFiles, err := injectCoverPage(readFileFromMap(defaultEntries()), "OEBPS/content.opf", []byte(opf))
	if err != nil {
		t.Fatalf("injectCoverPage: %v", err)
	}
	if patched != nil || len(newFiles) != 0 {
		t.Fatal("expected no-op without a declared cover image")
	}
}

func TestInjectCoverPageNoOpWhenCoverNotImage(t *testing.T) {
	opf := strings.Replace(testOPF, `media-type="image/jpeg"`, `media-type="text/plain"`, 1)
	patched, newFiles, err := injectCoverPage(readFileFromMap(defaultEntries()), "OEBPS/content.opf", []byte(opf))
	if err != nil {
		t.Fatalf("injectCoverPage: %v", err)
	}
	if patched != nil || len(newFiles) != 0 {
		t.Fatal("expected no-op when the declared cover is not image-typed")
	}
}

// Injecting twice must be structurally identical to injecting once: the
// second pass sees the injected page first in reading order and backs off.
func TestCoverInjectionIsIdempotent(t *testing.T) {
	src := writeTestEpub(t, defaultEntries())

	oncePath, onceCleanup, err := Prepare(src, true)
	if err != nil {
		t.Fatalf("first Prepare: %v", err)
	}
	defer os.Remove(onceCleanup)

	twicePath, twiceCleanup, err := Prepare(oncePath, true)
	if err != nil {
		t.Fatalf("second Prepare: %v", err)
	}
	defer os.Remove(twiceCleanup)

	once := readEntries(t, oncePath)
	twice := readEntries(t, twicePath)
	if diff := compareEntries(once, twice); diff != "" {
		t.Fatalf("second injection pass changed the archive: %s", diff)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes([]byte(twice["OEBPS/content.opf"])); err != nil {
		t.Fatalf("parse twice-processed package document: %v", err)
	}
	manifest := doc.Root().SelectElement("manifest")
	var injected int
	for _, item := range manifest.SelectElements("item") {
		if item.SelectAttrValue("id", "") == coverPageID {
			injected++
		}
	}
	if injected != 1 {
		t.Fatalf("expected one injected manifest item after two passes, got %d", injected)
	}
	spine := doc.Root().SelectElement("spine")
	var coverRefs int
	for _, ref := range spine.SelectElements("itemref") {
		if ref.SelectAttrValue("idref", "") == coverPageID {
			coverRefs++
		}
	}
	if coverRefs != 1 {
		t.Fatalf("expected one cover reading-order reference after two passes, got %d", coverRefs)
	}
}

func TestRootFilePath(t *testing.T) {
	if got := rootFilePath([]byte(testContainer)); got != "OEBPS/content.opf" {
		t.Fatalf("rootFilePath = %q", got)
	}
	if got := rootFilePath([]byte("garbage")); got != "" {
		t.Fatalf("expected empty path for unparseable container, got %q", got)
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
