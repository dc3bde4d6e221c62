// Package service implements drive file storage on gocloud.dev/blob buckets.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	cryptoDomain "github.com/allisson/peertransfer/internal/crypto/domain"
	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	apperrors "github.com/allisson/peertransfer/internal/errors"
)

const (
	headerObject   = "header.json"
	metadataObject = "metadata.json"
	thumbnailDir   = "thumbnails/"
)

// Storage stores drive files as a set of objects under <area>/<driveId>/<fileId>/.
type Storage struct {
	bucket *blob.Bucket
}

// OpenBucket opens the bucket at url. Supported schemes are file:// and mem://.
func OpenBucket(ctx context.Context, url string) (*blob.Bucket, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open drive bucket")
	}
	return bucket, nil
}

func objectKey(area driveDomain.Area, file driveDomain.InternalDriveFileID, name string) string {
	return path.Join(string(area), file.DriveID.String(), file.FileID.String(), name)
}

func filePrefix(area driveDomain.Area, file driveDomain.InternalDriveFileID) string {
	return objectKey(area, file, "") + "/"
}

func isNotFound(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}

func checkFileID(file driveDomain.InternalDriveFileID) error {
	if !file.IsValid() {
		return driveDomain.ErrInvalidFileID
	}
	return nil
}

// WriteHeader stores the encrypted key header of a file.
func (s *Storage) WriteHeader(
	ctx context.Context,
	area driveDomain.Area,
	file driveDomain.InternalDriveFileID,
	header *cryptoDomain.EncryptedKeyHeader,
) error {
	return s.writeJSON(ctx, objectKey(area, file, headerObject), file, header)
}

// WriteMetadata stores the metadata of a file.
func (s *Storage) WriteMetadata(
	ctx context.Context,
	area driveDomain.Area,
	file driveDomain.InternalDriveFileID,
	metadata *driveDomain.FileMetadata,
) error {
	return s.writeJSON(ctx, objectKey(area, file, metadataObject), file, metadata)
}

func (s *Storage) writeJSON(ctx context.Context, key string, file driveDomain.InternalDriveFileID, v any) error {
	if err := checkFileID(file); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal drive object")
	}

	opts := &blob.WriterOptions{ContentType: "application/json"}
	if err := s.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return apperrors.Wrapf(err, "failed to write %s", key)
	}
	return nil
}

// WritePayload streams r into the payload object and returns the number of bytes written.
func (s *Storage) WritePayload(
	ctx context.Context,
	area driveDomain.Area,
	file driveDomain.InternalDriveFileID,
	r io.Reader,
) (int64, error) {
	return s.writeStream(ctx, objectKey(area, file, string(driveDomain.PayloadPart)), file, "", r)
}

// WriteThumbnail streams r into the thumbnail object described by thumb.
func (s *Storage) WriteThumbnail(
	ctx context.Context,
	area driveDomain.Area,
	file driveDomain.InternalDriveFileID,
	thumb driveDomain.Thumbnail,
	r io.Reader,
) error {
	key := objectKey(area, file, string(driveDomain.ThumbnailPart(thumb.Key())))
	_, err := s.writeStream(ctx, key, file, thumb.ContentType, r)
	return err
}

func (s *Storage) writeStream(
	ctx context.Context,
	key string,
	file driveDomain.InternalDriveFileID,
	contentType string,
	r io.Reader,
) (int64, error) {
	if err := checkFileID(file); err != nil {
		return 0, err
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return 0, apperrors.Wrapf(err, "failed to open writer for %s", key)
	}

	n, copyErr := io.Copy(w, r)
	closeErr := w.Close()
	if copyErr != nil {
		return n, apperrors.Wrapf(copyErr, "failed to write %s", key)
	}
	if closeErr != nil {
		return n, apperrors.Wrapf(closeErr, "failed to commit %s", key)
	}
	return n, nil
}

// AssertFileIsValid verifies the file has a header, metadata and payload, looking
// at the staging area first and at long-term storage otherwise.
func (s *Storage) AssertFileIsValid(ctx context.Context, file driveDomain.InternalDriveFileID) error {
	if err := checkFileID(file); err != nil {
		return err
	}

	area := driveDomain.AreaStaging
	staged, err := s.bucket.Exists(ctx, objectKey(area, file, headerObject))
	if err != nil {
		return apperrors.Wrap(err, "failed to check staged header")
	}
	if !staged {
		area = driveDomain.AreaLongTerm
	}

	found := 0
	for _, name := range []string{headerObject, metadataObject, string(driveDomain.PayloadPart)} {
		ok, err := s.bucket.Exists(ctx, objectKey(area, file, name))
		if err != nil {
			return apperrors.Wrapf(err, "failed to check %s", name)
		}
		if ok {
			found++
		}
	}

	switch found {
	case 3:
		return nil
	case 0:
		return driveDomain.ErrFileNotFound
	default:
		return driveDomain.ErrInvalidFile
	}
}

// MoveToLongTerm commits a staged file. A file already in long-term storage with
// nothing staged is left untouched.
func (s *Storage) MoveToLongTerm(ctx context.Context, file driveDomain.InternalDriveFileID) error {
	if err := checkFileID(file); err != nil {
		return err
	}

	keys, err := s.listKeys(ctx, filePrefix(driveDomain.AreaStaging, file))
	if err != nil {
		return err
	}

	if len(keys) == 0 {
		committed, err := s.bucket.Exists(ctx, objectKey(driveDomain.AreaLongTerm, file, headerObject))
		if err != nil {
			return apperrors.Wrap(err, "failed to check long-term header")
		}
		if committed {
			return nil
		}
		return driveDomain.ErrFileNotFound
	}

	stagingPrefix := filePrefix(driveDomain.AreaStaging, file)
	longTermPrefix := filePrefix(driveDomain.AreaLongTerm, file)
	for _, key := range keys {
		dst := longTermPrefix + strings.TrimPrefix(key, stagingPrefix)
		if err := s.bucket.Copy(ctx, dst, key, nil); err != nil {
			return apperrors.Wrapf(err, "failed to copy %s", key)
		}
	}

	for _, key := range keys {
		if err := s.bucket.Delete(ctx, key); err != nil && !isNotFound(err) {
			return apperrors.Wrapf(err, "failed to delete %s", key)
		}
	}

	return nil
}

// GetEncryptedKeyHeader returns the stored key header of a committed file.
func (s *Storage) GetEncryptedKeyHeader(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
) (*cryptoDomain.EncryptedKeyHeader, error) {
	var header cryptoDomain.EncryptedKeyHeader
	if err := s.readJSON(ctx, driveDomain.AreaLongTerm, file, headerObject, &header); err != nil {
		return nil, err
	}
	return &header, nil
}

// GetMetadata returns the metadata of a file stored in area.
func (s *Storage) GetMetadata(
	ctx context.Context,
	area driveDomain.Area,
	file driveDomain.InternalDriveFileID,
) (*driveDomain.FileMetadata, error) {
	var metadata driveDomain.FileMetadata
	if err := s.readJSON(ctx, area, file, metadataObject, &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

func (s *Storage) readJSON(
	ctx context.Context,
	area driveDomain.Area,
	file driveDomain.InternalDriveFileID,
	name string,
	v any,
) error {
	if err := checkFileID(file); err != nil {
		return err
	}

	data, err := s.bucket.ReadAll(ctx, objectKey(area, file, name))
	if err != nil {
		if isNotFound(err) {
			return driveDomain.ErrFileNotFound
		}
		return apperrors.Wrapf(err, "failed to read %s", name)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.Wrapf(err, "failed to decode %s", name)
	}
	return nil
}

// GetFilePartStream opens a committed file part for reading. The caller closes it.
func (s *Storage) GetFilePartStream(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
	part driveDomain.FilePart,
) (io.ReadCloser, error) {
	if err := checkFileID(file); err != nil {
		return nil, err
	}

	r, err := s.bucket.NewReader(ctx, objectKey(driveDomain.AreaLongTerm, file, string(part)), nil)
	if err != nil {
		if isNotFound(err) {
			return nil, driveDomain.ErrFileNotFound
		}
		return nil, apperrors.Wrapf(err, "failed to open %s", part)
	}
	return r, nil
}

// ListThumbnails returns the thumbnails stored for a committed file.
func (s *Storage) ListThumbnails(
	ctx context.Context,
	file driveDomain.InternalDriveFileID,
) ([]driveDomain.Thumbnail, error) {
	if err := checkFileID(file); err != nil {
		return nil, err
	}

	prefix := filePrefix(driveDomain.AreaLongTerm, file) + thumbnailDir
	keys, err := s.listKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}

	thumbnails := make([]driveDomain.Thumbnail, 0, len(keys))
	for _, key := range keys {
		var thumb driveDomain.Thumbnail
		if _, err := fmt.Sscanf(strings.TrimPrefix(key, prefix), "%dx%d", &thumb.PixelWidth, &thumb.PixelHeight); err != nil {
			continue
		}

		attrs, err := s.bucket.Attributes(ctx, key)
		if err != nil {
			return nil, apperrors.Wrapf(err, "failed to read attributes of %s", key)
		}
		thumb.ContentType = attrs.ContentType
		thumbnails = append(thumbnails, thumb)
	}

	return thumbnails, nil
}

// PayloadSize returns the size in bytes of the payload stored in area.
func (s *Storage) PayloadSize(
	ctx context.Context,
	area driveDomain.Area,
	file driveDomain.InternalDriveFileID,
) (int64, error) {
	if err := checkFileID(file); err != nil {
		return 0, err
	}

	attrs, err := s.bucket.Attributes(ctx, objectKey(area, file, string(driveDomain.PayloadPart)))
	if err != nil {
		if isNotFound(err) {
			return 0, driveDomain.ErrFileNotFound
		}
		return 0, apperrors.Wrap(err, "failed to read payload attributes")
	}
	return attrs.Size, nil
}

// Delete removes every object of a file in area.
func (s *Storage) Delete(ctx context.Context, area driveDomain.Area, file driveDomain.InternalDriveFileID) error {
	if err := checkFileID(file); err != nil {
		return err
	}

	keys, err := s.listKeys(ctx, filePrefix(area, file))
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.bucket.Delete(ctx, key); err != nil && !isNotFound(err) {
			return apperrors.Wrapf(err, "failed to delete %s", key)
		}
	}
	return nil
}

func (s *Storage) listKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrapf(err, "failed to list %s", prefix)
		}
		if obj.IsDir {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// NewStorage creates a new Storage on bucket.
func NewStorage(bucket *blob.Bucket) *Storage {
	return &Storage{bucket: bucket}
}
