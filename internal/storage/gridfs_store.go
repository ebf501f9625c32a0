package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrBlobNotFound is returned when no blob exists under a key.
var ErrBlobNotFound = errors.New("blob not found")

// GridFSStore stores blobs in a MongoDB GridFS bucket, keyed by filename.
type GridFSStore struct {
	bucket *gridfs.Bucket
	signer *URLSigner
}

func NewGridFSStore(db *mongo.Database, bucketName string, signer *URLSigner) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket failed: %w", err)
	}
	return &GridFSStore{bucket: bucket, signer: signer}, nil
}

func (s *GridFSStore) Upload(ctx context.Context, key string, data []byte, mimeType string) (UploadResult, error) {
	s.applyDeadline(ctx)
	opts := options.GridFSUpload().SetMetadata(bson.M{"content_type": mimeType})
	if _, err := s.bucket.UploadFromStream(key, bytes.NewReader(data), opts); err != nil {
		return UploadResult{}, fmt.Errorf("gridfs upload %s failed: %w", key, err)
	}
	url, err := s.signer.Sign(key, s.signer.defaultTTL)
	if err != nil {
		return UploadResult{}, err
	}
	return UploadResult{Key: key, URL: url}, nil
}

func (s *GridFSStore) Download(ctx context.Context, key string) ([]byte, error) {
	s.applyDeadline(ctx)
	var buf bytes.Buffer
	if _, err := s.bucket.DownloadToStreamByName(key, &buf); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("gridfs download %s failed: %w", key, err)
	}
	return buf.Bytes(), nil
}

func (s *GridFSStore) Delete(ctx context.Context, key string) error {
	s.applyDeadline(ctx)
	cursor, err := s.bucket.Find(bson.M{"filename": key})
	if err != nil {
		return fmt.Errorf("gridfs find %s failed: %w", key, err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var file struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&file); err != nil {
			return fmt.Errorf("gridfs decode file doc failed: %w", err)
		}
		if err := s.bucket.Delete(file.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("gridfs delete %s failed: %w", key, err)
		}
	}
	return nil
}

func (s *GridFSStore) SignedURL(key string, ttl time.Duration) (string, error) {
	return s.signer.Sign(key, ttl)
}

// applyDeadline forwards a context deadline to the bucket; the v1 gridfs API
// takes deadlines instead of contexts.
func (s *GridFSStore) applyDeadline(ctx context.Context) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.bucket.SetWriteDeadline(deadline)
		_ = s.bucket.SetReadDeadline(deadline)
	}
}

func blobKey(teamID, documentID uint, version int, filename string) string {
	return fmt.Sprintf("teams/%d/documents/%d/v%d/%s", teamID, documentID, version, filename)
}
