package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"legal_marketplace_go/models"
	"legal_marketplace_go/services/metrics"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxAttachmentBytes caps the size of a single document buffered in memory during transfer
const MaxAttachmentBytes = 50 << 20

const maxConcurrentTransfers = 4

var (
	ErrEmptyReference   = errors.New("empty attachment reference")
	ErrForeignReference = errors.New("attachment reference does not point into the source bucket")
	ErrInvalidKey       = errors.New("invalid attachment key")
	ErrAttachmentTooBig = errors.New("attachment exceeds maximum size")
)

// AttachmentTransfer is the outcome of copying one document between stores
type AttachmentTransfer struct {
	Reference       string
	SourceKey       string
	DestinationPath string
	ContentType     string
	Size            int64
	Err             error
}

// TransferReport splits transfer outcomes into copied attachments and failures
type TransferReport struct {
	Attachments []models.Attachment
	Failures    []AttachmentTransfer
}

// AttachmentPath is the deterministic destination path of a client document
func AttachmentPath(caseID, filename string) string {
	return fmt.Sprintf("case/%s/client-documents/%s", caseID, filename)
}

// SourceKeyFromURL converts an object reference into a key inside bucket.
// Full URLs must contain "/<bucket>/" in their path; everything up to and
// including that segment is dropped. Bare keys are accepted with or without
// the bucket prefix. Query strings and fragments are ignored and the result
// is URL-decoded.
func SourceKeyFromURL(bucket, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrEmptyReference
	}

	var rawPath string
	isURL := false
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Host != "" {
		rawPath = u.EscapedPath()
		isURL = true
	} else {
		rawPath = ref
		if i := strings.IndexAny(rawPath, "?#"); i >= 0 {
			rawPath = rawPath[:i]
		}
	}

	rawPath = "/" + strings.TrimLeft(rawPath, "/")
	marker := "/" + bucket + "/"
	if i := strings.Index(rawPath, marker); bucket != "" && i >= 0 {
		rawPath = rawPath[i+len(marker):]
	} else if isURL {
		return "", eris.Wrapf(ErrForeignReference, "%s", ref)
	} else {
		rawPath = strings.TrimLeft(rawPath, "/")
	}

	key, err := url.PathUnescape(rawPath)
	if err != nil {
		return "", eris.Wrapf(ErrInvalidKey, "%s: %v", ref, err)
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return "", eris.Wrapf(ErrInvalidKey, "%s: no object name", ref)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return "", eris.Wrapf(ErrInvalidKey, "%s: path traversal", ref)
		}
	}
	return key, nil
}

// TransferAttachments copies every referenced document from src into dst under the
// case's client-documents folder. Transfers run concurrently and fail independently:
// a failed document is logged and reported but never stops its siblings.
// Blank references produce no transfer.
func TransferAttachments(ctx context.Context, src, dst StorageProvider, bucket, caseID string, refs []string) TransferReport {
	filtered := make([]string, 0, len(refs))
	for _, ref := range refs {
		if strings.TrimSpace(ref) != "" {
			filtered = append(filtered, ref)
		}
	}

	results := make([]AttachmentTransfer, len(filtered))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentTransfers)
	for i, ref := range filtered {
		g.Go(func() error {
			results[i] = transferOne(gCtx, src, dst, bucket, caseID, ref)
			// Never fail the group: siblings must keep running
			return nil
		})
	}
	_ = g.Wait()

	report := TransferReport{}
	for _, r := range results {
		if r.Err != nil {
			metrics.AttachmentTransfers.WithLabelValues(metrics.OutcomeFailure).Inc()
			zap.L().Warn("attachment transfer failed",
				zap.String("case_id", caseID),
				zap.String("reference", r.Reference),
				zap.String("source_key", r.SourceKey),
				zap.Error(r.Err),
			)
			report.Failures = append(report.Failures, r)
			continue
		}
		metrics.AttachmentTransfers.WithLabelValues(metrics.OutcomeSuccess).Inc()
		report.Attachments = append(report.Attachments, models.Attachment{
			Source: r.SourceKey,
			Path:   r.DestinationPath,
		})
	}
	return report
}

func transferOne(ctx context.Context, src, dst StorageProvider, bucket, caseID, ref string) AttachmentTransfer {
	t := AttachmentTransfer{Reference: ref}

	key, err := SourceKeyFromURL(bucket, ref)
	if err != nil {
		t.Err = err
		return t
	}
	t.SourceKey = key
	t.DestinationPath = AttachmentPath(caseID, path.Base(key))

	info, err := src.Stat(ctx, key)
	if err != nil {
		t.Err = eris.Wrapf(err, "stat source %s", key)
		return t
	}
	if info.Size > MaxAttachmentBytes {
		t.Err = eris.Wrapf(ErrAttachmentTooBig, "%s is %d bytes", key, info.Size)
		return t
	}

	reader, contentType, err := src.Get(ctx, key)
	if err != nil {
		t.Err = eris.Wrapf(err, "download source %s", key)
		return t
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, MaxAttachmentBytes+1))
	if err != nil {
		t.Err = eris.Wrapf(err, "read source %s", key)
		return t
	}
	if int64(len(data)) > MaxAttachmentBytes {
		t.Err = eris.Wrapf(ErrAttachmentTooBig, "%s", key)
		return t
	}

	t.ContentType = info.ContentType
	if t.ContentType == "" || t.ContentType == "application/octet-stream" {
		t.ContentType = contentType
	}
	t.Size = int64(len(data))

	if _, err := dst.UploadReader(ctx, bytes.NewReader(data), t.DestinationPath, t.ContentType, t.Size); err != nil {
		t.Err = eris.Wrapf(err, "upload %s", t.DestinationPath)
		return t
	}
	return t
}
