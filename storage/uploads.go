package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// Upload failure reasons. ErrNoFile is informational rather than a hard
// failure: the caller decides whether a missing file is acceptable.
var (
	ErrNoFile          = errors.New("no file submitted")
	ErrTooLarge        = errors.New("file exceeds the size limit")
	ErrUnsupportedType = errors.New("file type not allowed")
	ErrStorageWrite    = errors.New("could not store file")
)

// UploadCategory describes one subdirectory of the uploads/ tree together
// with its declared-MIME allow-list and size cap. Content is not sniffed;
// the client-declared type is the only validation signal.
type UploadCategory struct {
	Dir          string
	AllowedTypes []string
	MaxSizeBytes int64
}

var (
	VerificationUploads = UploadCategory{"verification", []string{"image/jpeg", "image/png", "application/pdf"}, 5 << 20}
	ListingUploads      = UploadCategory{"listings", []string{"image/jpeg", "image/png"}, 3 << 20}
	CareSheetUploads    = UploadCategory{"caresheets", []string{"application/pdf"}, 3 << 20}
	ProfileUploads      = UploadCategory{"profiles", []string{"image/jpeg", "image/png"}, 2 << 20}
)

// UploadsRoot returns the base directory of the uploads tree.
func UploadsRoot() string {
	if dir := os.Getenv("UPLOADS_DIR"); dir != "" {
		return dir
	}
	return "uploads"
}

// StoreUpload validates the submitted file against the category's allow-list
// and size cap and writes it under uploads/<category>/ with a unique name.
// On success it returns the stored path relative to the uploads/ root, ready
// to be persisted and later served over HTTP. Exactly one file is written on
// success and zero on any failure path.
func StoreUpload(fileHeader *multipart.FileHeader, category UploadCategory) (string, error) {
	if fileHeader == nil {
		return "", ErrNoFile
	}

	if fileHeader.Size > category.MaxSizeBytes {
		return "", ErrTooLarge
	}

	declaredType := fileHeader.Header.Get("Content-Type")
	if i := strings.Index(declaredType, ";"); i != -1 {
		declaredType = strings.TrimSpace(declaredType[:i])
	}
	if !slices.Contains(category.AllowedTypes, declaredType) {
		return "", ErrUnsupportedType
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	defer src.Close()

	targetDir := filepath.Join(UploadsRoot(), category.Dir)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	baseName := sanitizeBaseName(fileHeader.Filename)

	// The nanosecond token makes collisions practically impossible; O_EXCL
	// catches the remaining case of two uploads hitting the same tick.
	var dst *os.File
	var fullPath string
	for attempt := 0; ; attempt++ {
		token := strconv.FormatInt(time.Now().UnixNano(), 36)
		fullPath = filepath.Join(targetDir, token+"_"+baseName)
		dst, err = os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			break
		}
		if !os.IsExist(err) || attempt >= 5 {
			return "", fmt.Errorf("%w: %v", ErrStorageWrite, err)
		}
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(fullPath)
		return "", fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	return uploadsRelative(fullPath), nil
}

// RemoveUpload deletes a previously stored file given its uploads/-relative
// path. Used when rejected verification documents are configured to be
// cleaned up.
func RemoveUpload(relPath string) error {
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return fmt.Errorf("invalid upload path %q", relPath)
	}
	return os.Remove(filepath.Join(UploadsRoot(), clean))
}

// uploadsRelative strips everything up to and including the uploads/ segment
// so the database never sees absolute filesystem structure.
func uploadsRelative(fullPath string) string {
	p := filepath.ToSlash(fullPath)
	const marker = "uploads/"
	if i := strings.LastIndex(p, marker); i != -1 {
		return p[i+len(marker):]
	}
	if rel, err := filepath.Rel(UploadsRoot(), fullPath); err == nil {
		return filepath.ToSlash(rel)
	}
	return p
}

// sanitizeBaseName reduces a client-supplied filename to a safe basename so
// the original name can never traverse out of the target directory.
func sanitizeBaseName(name string) string {
	base := filepath.Base(filepath.ToSlash(strings.ReplaceAll(name, "\\", "/")))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	cleaned := strings.Trim(b.String(), ".")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}
