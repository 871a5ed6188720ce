package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"remsync/internal/epub"
	"remsync/internal/faults"
	"remsync/internal/logging"
)

// contentTypes maps known upload extensions to their canonical media types.
var contentTypes = map[string]string{
	".epub": "application/epub+zip",
	".pdf":  "application/pdf",
}

const errorBodyLimit = 2048

// UploadRequest describes one document upload.
type UploadRequest struct {
	LocalPath   string
	FolderID    string
	DisplayName string
	InjectCover bool
	// OnProgress receives the cumulative fraction of body bytes consumed by
	// the transport as the request streams. May be nil.
	OnProgress func(fraction float64)
	// NavigateFirst controls whether the transport sets the current directory
	// before uploading. Callers that already navigated for a shared folder
	// skip the redundant round trip.
	NavigateFirst bool
}

// UploadResult is the decoded JSON response of a successful upload.
type UploadResult map[string]any

// Upload sends one document through POST /upload. EPUB inputs are repackaged
// for firmware compatibility first; the repackaged temp file, when one was
// produced, is deleted before Upload returns.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (UploadResult, error) {
	if req.NavigateFirst {
		c.Navigate(ctx, req.FolderID)
	}

	preparedPath, cleanupPath, err := epub.Prepare(req.LocalPath, req.InjectCover)
	if err != nil {
		return nil, faults.Wrap(faults.ErrFormat, "device", "upload", req.LocalPath, err)
	}
	if cleanupPath != "" {
		defer func() {
			if removeErr := os.Remove(cleanupPath); removeErr != nil {
				c.logger.Warn("failed to remove repackaged temp file",
					logging.String("path", cleanupPath),
					logging.Error(removeErr))
			}
		}()
	}

	data, err := os.ReadFile(preparedPath)
	if err != nil {
		return nil, faults.Wrap(faults.ErrFormat, "device", "upload", preparedPath, err)
	}

	body, contentType, err := buildMultipart(req.DisplayName, data)
	if err != nil {
		return nil, faults.Wrap(faults.ErrProtocol, "device", "upload", req.DisplayName, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	base := c.baseURL()
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, base+"/upload",
		newProgressReader(body, req.OnProgress))
	if err != nil {
		return nil, faults.Wrap(faults.ErrProtocol, "device", "upload", req.DisplayName, err)
	}
	httpReq.Header.Set("Origin", base)
	httpReq.Header.Set("Accept", "*/*")
	httpReq.Header.Set("Referer", base+"/")
	httpReq.Header.Set("Connection", "keep-alive")
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Content-Length", strconv.Itoa(len(body)))
	httpReq.ContentLength = int64(len(body))

	c.logger.Info("uploading document",
		logging.String("file", req.DisplayName),
		logging.String("folder_id", req.FolderID),
		logging.Int("size", len(body)),
		logging.String("address", c.address))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportErr("upload", req.DisplayName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := readErrorExcerpt(resp.Body)
		c.logger.Error("upload rejected",
			logging.Int("status", resp.StatusCode),
			logging.String("file", req.DisplayName),
			logging.String("folder_id", req.FolderID),
			logging.Int("size", len(body)),
			logging.String("body", excerpt))
		return nil, faults.Wrap(faults.ErrProtocol, "device", "upload",
			fmt.Sprintf("HTTP %d: %s [file=%s, size=%d]", resp.StatusCode, excerpt, req.DisplayName, len(body)), nil)
	}

	var result UploadResult
	respBody, err := readAllBounded(resp.Body)
	if err != nil {
		return nil, faults.Wrap(faults.ErrProtocol, "device", "upload", req.DisplayName, err)
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, faults.Wrap(faults.ErrProtocol, "device", "upload",
			fmt.Sprintf("file=%s: unexpected response shape", req.DisplayName), err)
	}
	return result, nil
}

// buildMultipart assembles a single-part multipart/form-data body with part
// name "file" and a content type resolved from the filename extension.
func buildMultipart(filename string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentTypeFor(filename))

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func contentTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if guessed := mime.TypeByExtension(ext); guessed != "" {
		return guessed
	}
	return "application/octet-stream"
}

// progressReader reports the cumulative fraction of bytes consumed as the
// HTTP transport streams the request body.
type progressReader struct {
	mu       sync.Mutex
	data     []byte
	pos      int
	callback func(float64)
}

func newProgressReader(data []byte, callback func(float64)) *progressReader {
	return &progressReader{data: data, callback: callback}
}

func (r *progressReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	if r.pos >= len(r.data) {
		r.mu.Unlock()
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	pos, total := r.pos, len(r.data)
	callback := r.callback
	r.mu.Unlock()

	if callback != nil && total > 0 {
		callback(float64(pos) / float64(total))
	}
	return n, nil
}

func readErrorExcerpt(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, errorBodyLimit))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return "no details"
	}
	return string(bytes.TrimSpace(data))
}

func readAllBounded(body io.Reader) ([]byte, error) {
	const listingLimit = 8 << 20
	return io.ReadAll(io.LimitReader(body, listingLimit))
}
