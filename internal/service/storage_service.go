package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tesloshop/backend/internal/observability"
)

const productImagePrefix = "products"

// ProductImageObjectKey maps a bare image file name to its bucket key.
func ProductImageObjectKey(imageName string) string {
	return productImagePrefix + "/" + imageName
}

var (
	ErrFileTooBig          = errors.New("file exceeds the upload size limit")
	ErrInvalidFileType     = errors.New("invalid file type, only JPEG, PNG and GIF images are allowed")
	ErrBucketInitFailed    = errors.New("failed to initialize storage bucket")
	ErrUploadFailed        = errors.New("failed to upload file")
	ErrObjectNotFound      = errors.New("file not found")
	ErrURLGenerationFailed = errors.New("failed to generate presigned URL")

	allowedImageTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
	}
)

type UploadedImage struct {
	ObjectKey   string
	ContentType string
	Size        int64
}

// StorageService stores product image files and resolves short-lived
// download URLs for them.
type StorageService interface {
	UploadProductImage(ctx context.Context, file io.Reader, fileSize int64) (*UploadedImage, error)
	ProductImageURL(ctx context.Context, objectKey string) (string, error)
	DeleteProductImage(ctx context.Context, objectKey string) error
}

type MinIOStorageService struct {
	client      *minio.Client
	bucketName  string
	maxFileSize int64
	presignTTL  time.Duration
	initOnce    sync.Once
	initErr     error
}

// NewMinIOStorageService builds the client without touching the server;
// bucket creation is deferred to the first operation.
func NewMinIOStorageService(endpoint, accessKey, secretKey, bucketName string, useSSL bool, maxFileSize int64, presignTTL time.Duration) (*MinIOStorageService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIOStorageService{
		client:      client,
		bucketName:  bucketName,
		maxFileSize: maxFileSize,
		presignTTL:  presignTTL,
	}, nil
}

// Client exposes the underlying connection for readiness probing.
func (s *MinIOStorageService) Client() *minio.Client {
	return s.client
}

func (s *MinIOStorageService) lazyInit(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = fmt.Errorf("%w: check bucket: %v", ErrBucketInitFailed, err)
			return
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
				s.initErr = fmt.Errorf("%w: create bucket: %v", ErrBucketInitFailed, err)
			}
		}
	})
	return s.initErr
}

// UploadProductImage sniffs the content type from the payload itself,
// ignoring whatever the client claimed, and stores the file under a
// generated key.
func (s *MinIOStorageService) UploadProductImage(ctx context.Context, file io.Reader, fileSize int64) (*UploadedImage, error) {
	outcome := "success"
	defer func() { observability.RecordStorageOperation(ctx, "upload", outcome) }()

	if fileSize > s.maxFileSize {
		outcome = "too_big"
		return nil, ErrFileTooBig
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		outcome = "error"
		return nil, fmt.Errorf("%w: read file for content detection: %v", ErrUploadFailed, err)
	}
	head = head[:n]

	contentType := strings.ToLower(strings.TrimSpace(http.DetectContentType(head)))
	ext, allowed := allowedImageTypes[contentType]
	if !allowed {
		outcome = "bad_type"
		return nil, ErrInvalidFileType
	}

	if err := s.lazyInit(ctx); err != nil {
		outcome = "error"
		return nil, err
	}

	objectKey := fmt.Sprintf("%s/%s%s", productImagePrefix, uuid.NewString(), ext)
	payload := io.MultiReader(bytes.NewReader(head), file)
	info, err := s.client.PutObject(ctx, s.bucketName, objectKey, payload, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"Detected-Content-Type": contentType,
			"Uploaded-At":           time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		outcome = "error"
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	observability.RecordStorageUploadBytes(ctx, info.Size)
	return &UploadedImage{ObjectKey: objectKey, ContentType: contentType, Size: info.Size}, nil
}

func (s *MinIOStorageService) ProductImageURL(ctx context.Context, objectKey string) (string, error) {
	outcome := "success"
	defer func() { observability.RecordStorageOperation(ctx, "presign", outcome) }()

	if !validObjectKey(objectKey) {
		outcome = "not_found"
		return "", ErrObjectNotFound
	}
	if err := s.lazyInit(ctx); err != nil {
		outcome = "error"
		return "", err
	}
	if _, err := s.client.StatObject(ctx, s.bucketName, objectKey, minio.StatObjectOptions{}); err != nil {
		outcome = "not_found"
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, objectKey)
	}
	presigned, err := s.client.PresignedGetObject(ctx, s.bucketName, objectKey, s.presignTTL, url.Values{})
	if err != nil {
		outcome = "error"
		return "", fmt.Errorf("%w: %v", ErrURLGenerationFailed, err)
	}
	return presigned.String(), nil
}

func (s *MinIOStorageService) DeleteProductImage(ctx context.Context, objectKey string) error {
	outcome := "success"
	defer func() { observability.RecordStorageOperation(ctx, "delete", outcome) }()

	if !validObjectKey(objectKey) {
		return nil
	}
	if err := s.lazyInit(ctx); err != nil {
		outcome = "error"
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		outcome = "error"
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func validObjectKey(objectKey string) bool {
	if strings.TrimSpace(objectKey) == "" {
		return false
	}
	if strings.Contains(objectKey, "..") {
		return false
	}
	return strings.HasPrefix(objectKey, productImagePrefix+"/")
}
