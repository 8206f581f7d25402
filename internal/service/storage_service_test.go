package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func newStorageServiceForTest(t *testing.T) *MinIOStorageService {
	t.Helper()
	svc, err := NewMinIOStorageService("localhost:9000", "key", "secret", "product-images", false, 1024, 15*time.Minute)
	if err != nil {
		t.Fatalf("new storage service: %v", err)
	}
	return svc
}

func TestUploadProductImageRejectsOversizedFiles(t *testing.T) {
	svc := newStorageServiceForTest(t)
	_, err := svc.UploadProductImage(context.Background(), bytes.NewReader(nil), 4096)
	if !errors.Is(err, ErrFileTooBig) {
		t.Fatalf("expected ErrFileTooBig, got %v", err)
	}
}

func TestUploadProductImageRejectsNonImagePayloads(t *testing.T) {
	svc := newStorageServiceForTest(t)
	payload := []byte("%PDF-1.4 definitely not an image")
	_, err := svc.UploadProductImage(context.Background(), bytes.NewReader(payload), int64(len(payload)))
	if !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("expected ErrInvalidFileType, got %v", err)
	}
}

func TestUploadProductImageIgnoresClaimedContentType(t *testing.T) {
	// A payload that sniffs as text must be rejected regardless of any
	// extension or header the client sent alongside it.
	svc := newStorageServiceForTest(t)
	payload := []byte("<html><body>spoofed.jpg</body></html>")
	_, err := svc.UploadProductImage(context.Background(), bytes.NewReader(payload), int64(len(payload)))
	if !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("expected ErrInvalidFileType, got %v", err)
	}
}

func TestValidObjectKey(t *testing.T) {
	cases := []struct {
		key  string
		want bool
	}{
		{"products/abc.jpg", true},
		{"", false},
		{"   ", false},
		{"products/../secrets", false},
		{"avatars/user-1/pic.png", false},
	}
	for _, tc := range cases {
		if got := validObjectKey(tc.key); got != tc.want {
			t.Errorf("validObjectKey(%q) = %v, want %v", tc.key, got, tc.want)
		}
	}
}
