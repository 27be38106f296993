package validation

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/username/gainledger/src/logger"
)

// AllowedClientContentTypes is a map for quick lookup of allowed
// client-declared MIME types. Statement uploads are extracted text and the
// average-cost override is CSV; spreadsheets and other binaries stay out.
var AllowedClientContentTypes = map[string]bool{
	"text/plain":               true,
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true, // often used for CSV by older Excel
	// Many multipart writers default to octet-stream for any file part;
	// the content inspection below is the gate that matters.
	"application/octet-stream": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": false,
}

// ValidateClientContentType checks the Content-Type header provided by the
// client. An empty header is tolerated since many form posts omit per-part
// types; the content inspection below still applies.
func ValidateClientContentType(contentType string) error {
	if contentType == "" {
		return nil
	}
	normalized := strings.ToLower(strings.Split(contentType, ";")[0])
	if allowed, exists := AllowedClientContentTypes[normalized]; !exists || !allowed {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("client-declared file type '%s' is not allowed", contentType)
	}
	return nil
}

// isBinaryContent checks if a buffer contains binary control characters (like
// null bytes) which indicate the file is not statement text.
func isBinaryContent(buf []byte) bool {
	if bytes.IndexByte(buf, 0) != -1 {
		return true
	}
	return !utf8.Valid(buf)
}

// trimIncompleteRune drops a trailing multi-byte rune that the sniff window
// cut short. Statement text is mostly 3-byte CJK runes, so a fixed-size
// prefix read regularly ends mid-sequence; without the trim the UTF-8 check
// would reject the file as binary.
func trimIncompleteRune(buf []byte) []byte {
	end := len(buf)
	for i := 1; i <= utf8.UTFMax && i <= end; i++ {
		if !utf8.RuneStart(buf[end-i]) {
			continue
		}
		if r, size := utf8.DecodeRune(buf[end-i:]); r == utf8.RuneError && size == 1 {
			return buf[:end-i]
		}
		break
	}
	return buf
}

// ValidateTextContent checks the actual file content: it must be non-empty,
// valid UTF-8 text with no binary signature. The read pointer is reset so the
// caller can consume the full file afterwards.
func ValidateTextContent(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 1024)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}

	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}

	if n == 0 {
		return "", fmt.Errorf("file is empty")
	}

	chunk := buffer[:n]
	if n == len(buffer) {
		chunk = trimIncompleteRune(chunk)
	}

	if isBinaryContent(chunk) {
		logger.L.Warn("File rejected: Binary content detected in text upload")
		return "application/octet-stream", fmt.Errorf("file appears to be binary, not statement text")
	}

	detectedContentType := http.DetectContentType(chunk)
	detectedContentType = strings.ToLower(strings.Split(detectedContentType, ";")[0])

	// http.DetectContentType falls back to octet-stream for anything it does
	// not recognize; the binary check above already passed, so only known
	// text flavors are let through.
	allowedDetectedTypes := map[string]bool{
		"text/plain":      true,
		"text/csv":        true,
		"application/csv": true,
	}
	if !allowedDetectedTypes[detectedContentType] {
		logger.L.Warn("Disallowed detected file content type", "detectedContentType", detectedContentType)
		return detectedContentType, fmt.Errorf("detected file content type '%s' is not allowed", detectedContentType)
	}

	return detectedContentType, nil
}
