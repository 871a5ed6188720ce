package epub

import (
	"fmt"
	"path"
	"strings"

	"github.com/beevik/etree"
)

const (
	coverPageID   = "rm-cover-page"
	coverPageName = "rm_cover.xhtml"
)

const coverPageTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Cover</title></head>
<body style="margin:0;padding:0;">
<div style="text-align:center;">
<img src="%s" style="max-width:100%%;max-height:100%%;" alt="Cover"/>
</div>
</body>
</html>
`

// rootFilePath extracts the package document location from a container
// descriptor.
func rootFilePath(containerXML []byte) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(containerXML); err != nil {
		return ""
	}
	if rootfile := doc.FindElement("//rootfile"); rootfile != nil {
		return rootfile.SelectAttrValue("full-path", "")
	}
	return ""
}

// injectCoverPage patches a package document so its declared cover image is
// shown as the first page in reading order. Returns the patched document and
// newly generated files keyed by archive path, or (nil, nil, nil) when there
// is nothing to do: no declared cover image, the image is not image-typed, or
// the first spine page already references it (which makes a second injection
// pass a no-op).
func injectCoverPage(readFile func(string) ([]byte, error), opfPath string, opfBytes []byte) ([]byte, map[string][]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(opfBytes); err != nil {
		return nil, nil, fmt.Errorf("parse package document: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, nil, fmt.Errorf("package document has no root element")
	}

	coverImageID := declaredCoverID(root)
	if coverImageID == "" {
		return nil, nil, nil
	}

	manifest := root.SelectElement("manifest")
	if manifest == nil {
		return nil, nil, nil
	}
	coverHref := coverImageHref(manifest, coverImageID)
	if coverHref == "" {
		return nil, nil, nil
	}

	spine := root.SelectElement("spine")
	if spine == nil {
		return nil, nil, nil
	}
	refs := spine.SelectElements("itemref")
	if len(refs) == 0 {
		return nil, nil, nil
	}

	opfDir := path.Dir(opfPath)
	if opfDir == "." {
		opfDir = ""
	}

	if firstPageShowsCover(readFile, manifest, refs[0], opfDir, coverHref) {
		return nil, nil, nil
	}

	item := manifest.CreateElement("item")
	item.CreateAttr("id", coverPageID)
	item.CreateAttr("href", coverPageName)
	item.CreateAttr("media-type", "application/xhtml+xml")

	ref := etree.NewElement("itemref")
	ref.CreateAttr("idref", coverPageID)
	spine.InsertChildAt(0, ref)

	guide := root.SelectElement("guide")
	if guide == nil {
		guide = root.CreateElement("guide")
	}
	guideRef := guide.CreateElement("reference")
	guideRef.CreateAttr("type", "cover")
	guideRef.CreateAttr("title", "Cover")
	guideRef.CreateAttr("href", coverPageName)

	patched, err := doc.WriteToBytes()
	if err != nil {
		return nil, nil, fmt.Errorf("serialize package document: %w", err)
	}

	pagePath := coverPageName
	if opfDir != "" {
		pagePath = path.Join(opfDir, coverPageName)
	}
	page := []byte(fmt.Sprintf(coverPageTemplate, coverHref))
	return patched, map[string][]byte{pagePath: page}, nil
}

// declaredCoverID returns the manifest id named by <meta name="cover"/>.
func declaredCoverID(root *etree.Element) string {
	for _, meta := range root.FindElements("//meta") {
		if meta.SelectAttrValue("name", "") == "cover" {
			return meta.SelectAttrValue("content", "")
		}
	}
	return ""
}

// coverImageHref resolves the cover manifest item, requiring an image media
// type.
func coverImageHref(manifest *etree.Element, coverImageID string) string {
	for _, item := range manifest.SelectElements("item") {
		if item.SelectAttrValue("id", "") != coverImageID {
			continue
		}
		if strings.HasPrefix(item.SelectAttrValue("media-type", ""), "image/") {
			return item.SelectAttrValue("href", "")
		}
		return ""
	}
	return ""
}

// firstPageShowsCover inspects the first reading-order page for an existing
// reference to the cover image location.
func firstPageShowsCover(readFile func(string) ([]byte, error), manifest *etree.Element, firstRef *etree.Element, opfDir, coverHref string) bool {
	firstID := firstRef.SelectAttrValue("idref", "")
	for _, item := range manifest.SelectElements("item") {
		if item.SelectAttrValue("id", "") != firstID {
			continue
		}
		href := item.SelectAttrValue("href", "")
		full := href
		if opfDir != "" {
			full = path.Join(opfDir, href)
		}
		page, err := readFile(full)
		if err != nil {
			return false
		}
		return strings.Contains(string(page), coverHref)
	}
	return false
}
