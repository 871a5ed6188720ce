// Package epub rewrites EPUB archives for device-firmware compatibility and
// optionally injects a cover page.
//
// The device firmware rejects archives whose first entry is not a stored,
// extra-field-free "mimetype" entry, and cannot parse entries carrying the
// streaming data-descriptor flag that some tools set when re-saving. Prepare
// rewrites the archive so the marker entry is canonical and the flag is
// cleared everywhere.
package epub

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path"
	"sort"
	"strings"
)

// MediaType is the canonical EPUB media type, also the exact content of the
// mimetype marker entry.
const MediaType = "application/epub+zip"

const (
	mimetypeName  = "mimetype"
	containerPath = "META-INF/container.xml"
	opfExtension  = ".opf"

	// dataDescriptorFlag is ZIP general-purpose bit 3: sizes and CRC follow
	// the data instead of the local header.
	dataDescriptorFlag = 0x8
)

// Prepare rewrites an EPUB at path into a fresh temporary archive and returns
// the path to upload plus the temp path the caller owns and must delete.
// Non-EPUB inputs and archives that cannot be parsed pass through unchanged
// with an empty cleanup path.
func Prepare(filePath string, injectCover bool) (uploadPath string, cleanupPath string, err error) {
	if !strings.EqualFold(path.Ext(filePath), ".epub") {
		return filePath, "", nil
	}

	src, err := zip.OpenReader(filePath)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			// Not a readable archive; let the device decide what to do with it.
			return filePath, "", nil
		}
		return "", "", fmt.Errorf("open epub %s: %w", filePath, err)
	}
	defer src.Close()

	opfPath := locateOPF(&src.Reader)

	var patchedOPF []byte
	var newFiles map[string][]byte
	if injectCover && opfPath != "" {
		opfBytes, readErr := readArchiveFile(&src.Reader, opfPath)
		if readErr == nil {
			// Cover injection is best-effort; a malformed package document
			// must never abort the upload.
			patchedOPF, newFiles, _ = injectCoverPage(func(name string) ([]byte, error) {
				return readArchiveFile(&src.Reader, name)
			}, opfPath, opfBytes)
		}
	}

	out, err := os.CreateTemp("", "remsync-*.epub")
	if err != nil {
		return "", "", fmt.Errorf("create temp epub: %w", err)
	}
	outPath := out.Name()

	if err := writeArchive(out, &src.Reader, opfPath, patchedOPF, newFiles); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", "", fmt.Errorf("rewrite epub %s: %w", filePath, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", "", fmt.Errorf("close temp epub: %w", err)
	}
	return outPath, outPath, nil
}

func writeArchive(out io.Writer, src *zip.Reader, opfPath string, patchedOPF []byte, newFiles map[string][]byte) error {
	dst := zip.NewWriter(out)

	if err := writeMimetype(dst); err != nil {
		return err
	}

	for _, file := range src.File {
		if file.Name == mimetypeName {
			continue
		}
		if patchedOPF != nil && file.Name == opfPath {
			if err := writeDeflated(dst, file.Name, patchedOPF); err != nil {
				return err
			}
			continue
		}
		if err := copyRaw(dst, file); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(newFiles))
	for name := range newFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writeDeflated(dst, name, newFiles[name]); err != nil {
			return err
		}
	}

	return dst.Close()
}

// writeMimetype emits the marker entry: first, stored, exact CRC and sizes in
// the local header so no data descriptor is needed, and no extra fields.
func writeMimetype(dst *zip.Writer) error {
	content := []byte(MediaType)
	header := &zip.FileHeader{
		Name:               mimetypeName,
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(content),
		CompressedSize64:   uint64(len(content)),
		UncompressedSize64: uint64(len(content)),
	}
	w, err := dst.CreateRaw(header)
	if err != nil {
		return fmt.Errorf("write mimetype entry: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("write mimetype entry: %w", err)
	}
	return nil
}

// copyRaw transplants an entry's compressed bytes while clearing the data
// descriptor flag and stripping per-entry extra fields.
func copyRaw(dst *zip.Writer, file *zip.File) error {
	header := file.FileHeader
	header.Flags &^= dataDescriptorFlag
	header.Extra = nil

	w, err := dst.CreateRaw(&header)
	if err != nil {
		return fmt.Errorf("copy %s: %w", file.Name, err)
	}
	r, err := file.OpenRaw()
	if err != nil {
		return fmt.Errorf("copy %s: %w", file.Name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copy %s: %w", file.Name, err)
	}
	return nil
}

// writeDeflated compresses data up front so the local header carries the CRC
// and sizes and the entry needs no data descriptor.
func writeDeflated(dst *zip.Writer, name string, data []byte) error {
	var compressed bytes.Buffer
	fw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	header := &zip.FileHeader{
		Name:               name,
		Method:             zip.Deflate,
		CRC32:              crc32.ChecksumIEEE(data),
		CompressedSize64:   uint64(compressed.Len()),
		UncompressedSize64: uint64(len(data)),
	}
	w, err := dst.CreateRaw(header)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := w.Write(compressed.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// locateOPF finds the package document path: the container descriptor's
// root-file when parseable, otherwise the first entry with the package
// document extension.
func locateOPF(src *zip.Reader) string {
	if data, err := readArchiveFile(src, containerPath); err == nil {
		if full := rootFilePath(data); full != "" {
			return full
		}
	}
	for _, file := range src.File {
		if strings.HasSuffix(file.Name, opfExtension) {
			return file.Name
		}
	}
	return ""
}

func readArchiveFile(src *zip.Reader, name string) ([]byte, error) {
	for _, file := range src.File {
		if file.Name != name {
			continue
		}
		r, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer r.Close()
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, r); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("entry %s not found", name)
}
