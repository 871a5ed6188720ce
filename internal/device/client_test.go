package device

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"remsync/internal/faults"
)

func TestFetchListingParsesPublishedFieldNames(t *testing.T) {
	// The display-name key is misspelled in the device API; it must be
	// matched exactly as published.
	payload := `[{"ID":"d1","Parent":"","VissibleName":"My Book","Type":"DocumentType","fileType":"epub"}]`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/documents/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		io.WriteString(w, payload)
	}))
	defer server.Close()

	client := NewClient(strings.TrimPrefix(server.URL, "http://"))
	entries, err := client.FetchListing(context.Background(), "")
	if err != nil {
		t.Fatalf("FetchListing: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	got := entries[0]
	if got.Name != "My Book" || got.ID != "d1" || got.FileType != "epub" {
		t.Fatalf("unexpected entry %+v", got)
	}
	if got.IsFolder() {
		t.Fatal("document entry reported as folder")
	}
}

func TestFetchListingSortsByParent(t *testing.T) {
	dev := &fakeDevice{listings: map[string][]listingEntry{
		"": {
			document("d1", "zzz", "last.pdf"),
			document("d2", "aaa", "first.pdf"),
		},
	}}
	client, _ := newTestClient(t, dev)

	entries, err := client.FetchListing(context.Background(), "")
	if err != nil {
		t.Fatalf("FetchListing: %v", err)
	}
	if entries[0].ID != "d2" || entries[1].ID != "d1" {
		t.Fatalf("expected entries ordered by parent id, got %+v", entries)
	}
}

func TestFetchListingRejectsUnexpectedShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"not":"an array"}`)
	}))
	defer server.Close()

	client := NewClient(strings.TrimPrefix(server.URL, "http://"))
	if _, err := client.FetchListing(context.Background(), ""); !errors.Is(err, faults.ErrProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestIsReachable(t *testing.T) {
	dev := &fakeDevice{listings: map[string][]listingEntry{"": {}}}
	client, server := newTestClient(t, dev)

	if !client.IsReachable(context.Background()) {
		t.Fatal("expected reachable device")
	}
	server.Close()
	if client.IsReachable(context.Background()) {
		t.Fatal("expected unreachable after server shutdown")
	}
}

func TestDeleteIsCapabilityFailure(t *testing.T) {
	client := NewClient("10.11.99.1")
	err := client.Delete(context.Background(), "book.pdf")
	if !faults.IsCapability(err) {
		t.Fatalf("expected capability failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "book.pdf") {
		t.Fatalf("expected offending name in message, got %q", err.Error())
	}
}

type uploadRecord struct {
	partName    string
	filename    string
	contentType string
	body        []byte
	declaredLen string
}

func newUploadServer(t *testing.T, status int, responseBody string) (*Client, *[]uploadRecord, *[]string) {
	t.Helper()
	var uploads []uploadRecord
	var listings []string
	mux := http.NewServeMux()
	mux.HandleFunc("/documents/", func(w http.ResponseWriter, r *http.Request) {
		listings = append(listings, strings.TrimPrefix(r.URL.Path, "/documents/"))
		io.WriteString(w, "[]")
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		reader, err := r.MultipartReader()
		if err != nil {
			t.Errorf("multipart reader: %v", err)
			http.Error(w, "bad multipart", http.StatusBadRequest)
			return
		}
		part, err := reader.NextPart()
		if err != nil {
			t.Errorf("next part: %v", err)
			return
		}
		data, _ := io.ReadAll(part)
		uploads = append(uploads, uploadRecord{
			partName:    part.FormName(),
			filename:    part.FileName(),
			contentType: part.Header.Get("Content-Type"),
			body:        data,
			declaredLen: r.Header.Get("Content-Length"),
		})
		if status >= 400 {
			http.Error(w, responseBody, status)
			return
		}
		w.WriteHeader(status)
		io.WriteString(w, responseBody)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	client := NewClient(strings.TrimPrefix(server.URL, "http://"))
	return client, &uploads, &listings
}

func TestUploadSendsSingleNamedPart(t *testing.T) {
	client, uploads, listings := newUploadServer(t, http.StatusOK, `{"status":"Upload successful"}`)

	path := filepath.Join(t.TempDir(), "report.pdf")
	content := []byte("%PDF-1.4 fake")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	var fractions []float64
	result, err := client.Upload(context.Background(), UploadRequest{
		LocalPath:     path,
		FolderID:      "f1",
		DisplayName:   "Report.pdf",
		OnProgress:    func(f float64) { fractions = append(fractions, f) },
		NavigateFirst: true,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if result["status"] != "Upload successful" {
		t.Fatalf("unexpected decoded response %v", result)
	}

	if len(*listings) != 1 || (*listings)[0] != "f1" {
		t.Fatalf("expected one navigation listing for f1, got %v", *listings)
	}
	if len(*uploads) != 1 {
		t.Fatalf("expected one upload, got %d", len(*uploads))
	}
	up := (*uploads)[0]
	if up.partName != "file" {
		t.Fatalf("part name = %q, want file", up.partName)
	}
	if up.filename != "Report.pdf" {
		t.Fatalf("filename = %q", up.filename)
	}
	if up.contentType != "application/pdf" {
		t.Fatalf("content type = %q", up.contentType)
	}
	if !bytes.Equal(up.body, content) {
		t.Fatal("uploaded bytes differ from source file")
	}
	if up.declaredLen == "" {
		t.Fatal("expected explicit Content-Length header")
	}

	if len(fractions) == 0 {
		t.Fatal("expected progress callbacks")
	}
	last := fractions[len(fractions)-1]
	if last != 1 {
		t.Fatalf("expected final fraction 1, got %v", last)
	}
	for i := 1; i < len(fractions); i++ {
		if fractions[i] < fractions[i-1] {
			t.Fatalf("progress regressed at %d: %v", i, fractions)
		}
	}
}

func TestUploadSkipsNavigationWhenAsked(t *testing.T) {
	client, _, listings := newUploadServer(t, http.StatusOK, `{}`)

	path := filepath.Join(t.TempDir(), "a.pdf")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := client.Upload(context.Background(), UploadRequest{
		LocalPath:   path,
		DisplayName: "a.pdf",
	}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(*listings) != 0 {
		t.Fatalf("expected no navigation round trip, got %v", *listings)
	}
}

func TestUploadRepackagesEpubInput(t *testing.T) {
	client, uploads, _ := newUploadServer(t, http.StatusOK, `{}`)

	// Minimal epub: any zip with an .epub suffix gets repackaged.
	path := filepath.Join(t.TempDir(), "book.epub")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create epub: %v", err)
	}
	zw := zip.NewWriter(file)
	entry, _ := zw.Create("mimetype")
	entry.Write([]byte("application/epub+zip"))
	page, _ := zw.Create("chapter1.xhtml")
	page.Write([]byte("<html/>"))
	zw.Close()
	file.Close()

	if _, err := client.Upload(context.Background(), UploadRequest{
		LocalPath:   path,
		DisplayName: "book.epub",
	}); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	up := (*uploads)[0]
	if up.contentType != "application/epub+zip" {
		t.Fatalf("content type = %q", up.contentType)
	}
	zr, err := zip.NewReader(bytes.NewReader(up.body), int64(len(up.body)))
	if err != nil {
		t.Fatalf("uploaded body is not a zip: %v", err)
	}
	if zr.File[0].Name != "mimetype" || zr.File[0].Method != zip.Store {
		t.Fatal("expected repackaged archive with canonical marker entry first")
	}
}

func TestUploadErrorCarriesStatusFilenameAndSize(t *testing.T) {
	client, uploads, _ := newUploadServer(t, http.StatusInsufficientStorage, "device storage full")

	path := filepath.Join(t.TempDir(), "big.pdf")
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), 1000), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := client.Upload(context.Background(), UploadRequest{
		LocalPath:   path,
		DisplayName: "big.pdf",
	})
	if err == nil {
		t.Fatal("expected upload failure")
	}
	msg := err.Error()
	if !strings.Contains(msg, "507") {
		t.Fatalf("expected status code in message, got %q", msg)
	}
	if !strings.Contains(msg, "big.pdf") {
		t.Fatalf("expected filename in message, got %q", msg)
	}
	if !strings.Contains(msg, fmt.Sprintf("size=%s", (*uploads)[0].declaredLen)) {
		t.Fatalf("expected exact byte size in message, got %q", msg)
	}
	if !strings.Contains(msg, "device storage full") {
		t.Fatalf("expected body excerpt in message, got %q", msg)
	}
}

func TestUploadTimeoutIsDistinguishable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(strings.TrimPrefix(server.URL, "http://"),
		WithTimeouts(0, 50*time.Millisecond, 0))

	path := filepath.Join(t.TempDir(), "slow.pdf")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	_, err := client.Upload(context.Background(), UploadRequest{
		LocalPath:   path,
		DisplayName: "slow.pdf",
	})
	if !faults.IsTimeout(err) {
		t.Fatalf("expected timeout classification, got %v", err)
	}
}

func TestContentTypeFallbacks(t *testing.T) {
	if got := contentTypeFor("book.epub"); got != "application/epub+zip" {
		t.Fatalf("epub content type = %q", got)
	}
	if got := contentTypeFor("book.pdf"); got != "application/pdf" {
		t.Fatalf("pdf content type = %q", got)
	}
	if got := contentTypeFor("mystery.bin"); got != "application/octet-stream" {
		t.Fatalf("unknown extension fallback = %q", got)
	}
}
