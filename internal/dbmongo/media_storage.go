package dbmongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medious/internal/common"
)

var ErrUnsupportedMedia = errors.New("only image and video files are supported")

// MediaFile describes a file stored in the media_files bucket.
type MediaFile struct {
	ID         string               `json:"id"`
	Filename   string               `json:"filename"`
	Size       int64                `json:"size"`
	FileType   common.MediaFileType `json:"file_type"`
	MimeType   string               `json:"mime_type"`
	UploadedBy string               `json:"uploaded_by"`
	UploadedAt time.Time            `json:"uploaded_at"`
}

// mediaMetadata is the metadata sub-document of a GridFS files entry.
type mediaMetadata struct {
	FileType   string    `bson:"file_type"`
	MimeType   string    `bson:"mime_type"`
	UploadedBy string    `bson:"uploaded_by"`
	UploadedAt time.Time `bson:"uploaded_at"`
}

// MediaStorage keeps story images and videos in GridFS.
type MediaStorage struct {
	bucket *gridfs.Bucket
	now    func() time.Time
}

func NewMediaStorage(mc *MongoClient) *MediaStorage {
	return &MediaStorage{bucket: mc.GridFS, now: time.Now}
}

func (ms *MediaStorage) UploadFile(ctx context.Context, filename, mimeType, uploaderID string, content io.Reader) (*MediaFile, error) {
	fileType, ok := common.DetectFileType(mimeType)
	if !ok {
		return nil, ErrUnsupportedMedia
	}

	meta := mediaMetadata{
		FileType:   fileType.String(),
		MimeType:   mimeType,
		UploadedBy: uploaderID,
		UploadedAt: ms.now().UTC().Truncate(time.Millisecond),
	}
	stream, err := ms.bucket.OpenUploadStream(filename, options.GridFSUpload().SetMetadata(meta))
	if err != nil {
		return nil, fmt.Errorf("failed to open upload stream: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetWriteDeadline(deadline)
	}

	size, err := io.Copy(stream, content)
	if err != nil {
		_ = stream.Abort()
		return nil, fmt.Errorf("failed to write media: %w", err)
	}
	// Close flushes the last chunk and writes the files document.
	if err := stream.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish upload: %w", err)
	}

	fileID, _ := stream.FileID.(primitive.ObjectID)
	return meta.toMediaFile(fileID.Hex(), filename, size), nil
}

// OpenFile returns ErrNotFound for malformed or unknown ids. The caller closes the reader.
func (ms *MediaStorage) OpenFile(ctx context.Context, fileID string) (io.ReadCloser, *MediaFile, error) {
	oid, err := ParseID(fileID)
	if err != nil {
		return nil, nil, err
	}

	stream, err := ms.bucket.OpenDownloadStream(oid)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open media: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetReadDeadline(deadline)
	}

	info := stream.GetFile()
	meta := decodeMetadata(info.Metadata)
	if meta.UploadedAt.IsZero() {
		meta.UploadedAt = info.UploadDate
	}
	return stream, meta.toMediaFile(fileID, info.Name, info.Length), nil
}

func (ms *MediaStorage) DeleteFile(ctx context.Context, fileID string) error {
	oid, err := ParseID(fileID)
	if err != nil {
		return err
	}
	return TranslateError(ms.bucket.DeleteContext(ctx, oid))
}

// decodeMetadata tolerates files written without metadata.
func decodeMetadata(raw bson.Raw) mediaMetadata {
	var meta mediaMetadata
	if len(raw) > 0 {
		_ = bson.Unmarshal(raw, &meta)
	}
	return meta
}

func (m mediaMetadata) toMediaFile(id, filename string, size int64) *MediaFile {
	return &MediaFile{
		ID:         id,
		Filename:   filename,
		Size:       size,
		FileType:   common.MediaFileType(m.FileType),
		MimeType:   m.MimeType,
		UploadedBy: m.UploadedBy,
		UploadedAt: m.UploadedAt,
	}
}
