package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"legal_marketplace_go/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// ErrObjectNotFound is returned when a key does not exist in the store
var ErrObjectNotFound = errors.New("object not found")

// StorageProvider defines the interface for object storage operations
type StorageProvider interface {
	UploadReader(ctx context.Context, reader io.Reader, key string, contentType string, size int64) (*StorageResult, error)
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error) // Returns reader, content-type, error
	Delete(ctx context.Context, key string) error
	GetSignedURL(ctx context.Context, key string, expiration time.Duration) (string, error)
	GetPublicURL(key string) string
}

// StorageResult contains information about the stored file
type StorageResult struct {
	Key      string
	FileName string
	FileSize int64
	MimeType string
	URL      string // Public or signed URL
}

// ObjectInfo describes an existing object
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// Stores groups the two object stores the pipeline moves data between
type Stores struct {
	Source      StorageProvider // client uploads (read-only for the pipeline)
	Destination StorageProvider // case artifacts and copied documents
}

// InitializeStorage sets up source and destination providers based on configuration.
// Either store falls back to the local filesystem when its credentials are missing.
func InitializeStorage(cfg *config.Config) Stores {
	stores := Stores{}

	if cfg.R2AccountID != "" && cfg.R2AccessKeyID != "" && cfg.R2SecretAccessKey != "" && cfg.R2BucketName != "" {
		r2, err := NewS3Storage(S3Options{
			Endpoint:        fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID),
			Region:          "auto", // R2 uses "auto" region
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Bucket:          cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		})
		if err != nil {
			zap.L().Warn("failed to initialize R2 storage, falling back to local storage", zap.Error(err))
		} else if err := r2.Ping(context.Background()); err != nil {
			zap.L().Warn("R2 bucket connection test failed, falling back to local storage", zap.Error(err))
		} else {
			stores.Destination = r2
			zap.L().Info("destination storage established (Cloudflare R2)", zap.String("bucket", cfg.R2BucketName))
		}
	}
	if stores.Destination == nil {
		stores.Destination = NewLocalStorage(filepath.Join(cfg.UploadDir, "destination"))
		zap.L().Info("destination storage established (local filesystem)", zap.String("path", cfg.UploadDir))
	}

	if cfg.SourceS3Endpoint != "" && cfg.SourceS3AccessKeyID != "" && cfg.SourceS3SecretAccessKey != "" {
		src, err := NewS3Storage(S3Options{
			Endpoint:        cfg.SourceS3Endpoint,
			Region:          cfg.SourceS3Region,
			AccessKeyID:     cfg.SourceS3AccessKeyID,
			SecretAccessKey: cfg.SourceS3SecretAccessKey,
			Bucket:          cfg.SourceBucket,
		})
		if err != nil {
			zap.L().Warn("failed to initialize source storage, falling back to local storage", zap.Error(err))
		} else {
			stores.Source = src
			zap.L().Info("source storage established (S3-compatible)", zap.String("bucket", cfg.SourceBucket))
		}
	}
	if stores.Source == nil {
		stores.Source = NewLocalStorage(filepath.Join(cfg.UploadDir, "source"))
		zap.L().Info("source storage established (local filesystem)", zap.String("path", cfg.UploadDir))
	}

	return stores
}

// S3Options configures an S3-compatible store (Cloudflare R2, Supabase storage, MinIO)
type S3Options struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
}

// S3Storage implements StorageProvider for S3-compatible object stores
type S3Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	publicURL string
}

// NewS3Storage creates a new S3-compatible storage provider
func NewS3Storage(opts S3Options) (*S3Storage, error) {
	creds := credentials.NewStaticCredentialsProvider(
		opts.AccessKeyID,
		opts.SecretAccessKey,
		"",
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRegion(opts.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Storage{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    opts.Bucket,
		publicURL: opts.PublicURL,
	}, nil
}

// Ping checks the bucket is reachable with the configured credentials
func (s *S3Storage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	return err
}

// UploadReader uploads content from a reader, overwriting any existing object at key
func (s *S3Storage) UploadReader(ctx context.Context, reader io.Reader, key string, contentType string, size int64) (*StorageResult, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return &StorageResult{
		Key:      key,
		FileName: filepath.Base(key),
		FileSize: size,
		MimeType: contentType,
		URL:      s.GetPublicURL(key),
	}, nil
}

// Stat returns size and content type of an object without downloading it
func (s *S3Storage) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}

	info := &ObjectInfo{Key: key, ContentType: "application/octet-stream"}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.ContentType != nil && *out.ContentType != "" {
		info.ContentType = *out.ContentType
	}
	return info, nil
}

// Get retrieves an object and returns a reader
func (s *S3Storage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, "", fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return nil, "", fmt.Errorf("failed to get object %s: %w", key, err)
	}

	contentType := "application/octet-stream"
	if result.ContentType != nil {
		contentType = *result.ContentType
	}

	return result.Body, contentType, nil
}

// Delete removes an object
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// GetSignedURL generates a presigned URL for temporary access
func (s *S3Storage) GetSignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	presignedReq, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiration))
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %w", err)
	}

	return presignedReq.URL, nil
}

// GetPublicURL returns the public URL for a file (if public URL is configured)
func (s *S3Storage) GetPublicURL(key string) string {
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(s.publicURL, "/"), key)
	}
	// If no public URL, return empty - caller should use GetSignedURL
	return ""
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// LocalStorage implements StorageProvider for local filesystem
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates a new local storage provider
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{baseDir: baseDir}
}

// UploadReader saves content from a reader to local filesystem, replacing any existing file
func (l *LocalStorage) UploadReader(ctx context.Context, reader io.Reader, key string, contentType string, size int64) (*StorageResult, error) {
	fullPath := filepath.Join(l.baseDir, key)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	return &StorageResult{
		Key:      key,
		FileName: filepath.Base(key),
		FileSize: written,
		MimeType: contentType,
		URL:      "/" + filepath.Join(l.baseDir, key),
	}, nil
}

// Stat returns size and content type detected from the extension
func (l *LocalStorage) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	fi, err := os.Stat(filepath.Join(l.baseDir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", key, ErrObjectNotFound)
	}

	return &ObjectInfo{Key: key, Size: fi.Size(), ContentType: contentTypeFromExt(key)}, nil
}

// Get retrieves a file from local filesystem and returns a reader
func (l *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	file, err := os.Open(filepath.Join(l.baseDir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}

	return file, contentTypeFromExt(key), nil
}

// Delete removes a file from local filesystem
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath := filepath.Join(l.baseDir, key)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetSignedURL for local storage just returns the file path (no signing needed)
func (l *LocalStorage) GetSignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	return "/" + filepath.Join(l.baseDir, key), nil
}

// GetPublicURL returns the local file path
func (l *LocalStorage) GetPublicURL(key string) string {
	return "/" + filepath.Join(l.baseDir, key)
}

func contentTypeFromExt(key string) string {
	switch ext := strings.ToLower(filepath.Ext(key)); ext {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".md":
		return "text/markdown; charset=utf-8"
	case "":
		return "application/octet-stream"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
