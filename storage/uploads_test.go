package storage

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// buildFileHeader assembles a real multipart.FileHeader the way the HTTP
// layer would hand it to a route.
func buildFileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="document"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	w.Close()

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["document"][0]
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	return len(entries)
}

func TestStoreUploadNoFile(t *testing.T) {
	t.Setenv("UPLOADS_DIR", t.TempDir())

	if _, err := StoreUpload(nil, VerificationUploads); !errors.Is(err, ErrNoFile) {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
}

func TestStoreUploadTooLarge(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UPLOADS_DIR", root)

	fh := buildFileHeader(t, "passport.pdf", "application/pdf", bytes.Repeat([]byte("a"), 6<<20))
	if _, err := StoreUpload(fh, VerificationUploads); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if n := countFiles(t, filepath.Join(root, VerificationUploads.Dir)); n != 0 {
		t.Fatalf("expected no files written, found %d", n)
	}
}

func TestStoreUploadUnsupportedType(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UPLOADS_DIR", root)

	fh := buildFileHeader(t, "anim.gif", "image/gif", []byte("GIF89a"))
	if _, err := StoreUpload(fh, VerificationUploads); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if n := countFiles(t, filepath.Join(root, VerificationUploads.Dir)); n != 0 {
		t.Fatalf("expected no files written, found %d", n)
	}
}

func TestStoreUploadCategoryLimits(t *testing.T) {
	t.Setenv("UPLOADS_DIR", t.TempDir())

	// A PDF is fine as a care sheet but not as a listing photo.
	fh := buildFileHeader(t, "care.pdf", "application/pdf", []byte("%PDF-1.4"))
	if _, err := StoreUpload(fh, ListingUploads); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType for pdf listing photo, got %v", err)
	}
	if _, err := StoreUpload(fh, CareSheetUploads); err != nil {
		t.Fatalf("expected care sheet pdf to be accepted, got %v", err)
	}

	// Profile photos cap at 2 MB.
	big := buildFileHeader(t, "me.jpg", "image/jpeg", bytes.Repeat([]byte("b"), (2<<20)+1))
	if _, err := StoreUpload(big, ProfileUploads); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for 2MB+1 profile photo, got %v", err)
	}
}

func TestStoreUploadSuccess(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UPLOADS_DIR", root)

	content := []byte("fake jpeg bytes")
	fh := buildFileHeader(t, "id card.jpg", "image/jpeg", content)
	rel, err := StoreUpload(fh, VerificationUploads)
	if err != nil {
		t.Fatalf("store failed: %v", err)
	}

	if !strings.HasPrefix(rel, VerificationUploads.Dir+"/") {
		t.Fatalf("expected path under %s/, got %q", VerificationUploads.Dir, rel)
	}
	if strings.Contains(rel, "..") {
		t.Fatalf("relative path escapes the uploads root: %q", rel)
	}

	stored, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("stored file not readable: %v", err)
	}
	if !bytes.Equal(stored, content) {
		t.Fatalf("stored content differs from the upload")
	}
}

func TestStoreUploadUniqueNames(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UPLOADS_DIR", root)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		fh := buildFileHeader(t, "same-name.png", "image/png", []byte{byte(i)})
		rel, err := StoreUpload(fh, ListingUploads)
		if err != nil {
			t.Fatalf("store %d failed: %v", i, err)
		}
		if seen[rel] {
			t.Fatalf("duplicate stored path %q", rel)
		}
		seen[rel] = true
	}
	if n := countFiles(t, filepath.Join(root, ListingUploads.Dir)); n != 10 {
		t.Fatalf("expected 10 stored files, found %d", n)
	}
}

func TestStoreUploadSanitizesTraversal(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UPLOADS_DIR", root)

	fh := buildFileHeader(t, "../../../etc/passwd.png", "image/png", []byte("x"))
	rel, err := StoreUpload(fh, ProfileUploads)
	if err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if strings.Contains(rel, "..") {
		t.Fatalf("traversal survived sanitizing: %q", rel)
	}
	if n := countFiles(t, filepath.Join(root, ProfileUploads.Dir)); n != 1 {
		t.Fatalf("expected the file inside the profile dir, found %d entries", n)
	}
}

func TestRemoveUploadRejectsEscapes(t *testing.T) {
	t.Setenv("UPLOADS_DIR", t.TempDir())

	if err := RemoveUpload("../secret"); err == nil {
		t.Fatalf("expected error for escaping path")
	}
	if err := RemoveUpload("/etc/passwd"); err == nil {
		t.Fatalf("expected error for absolute path")
	}
}

func TestRemoveUpload(t *testing.T) {
	root := t.TempDir()
	t.Setenv("UPLOADS_DIR", root)

	fh := buildFileHeader(t, "doc.pdf", "application/pdf", []byte("%PDF"))
	rel, err := StoreUpload(fh, VerificationUploads)
	if err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if err := RemoveUpload(rel); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); !os.IsNotExist(err) {
		t.Fatalf("file still present after remove")
	}
}
