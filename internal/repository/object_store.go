package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/go-kivik/kivik/v4"
	"github.com/sirupsen/logrus"
)

// ObjectStore keeps binary objects in named buckets.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	Put(ctx context.Context, bucket, key, contentType string, data []byte) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

// CouchObjectStore maps a bucket to a CouchDB database and an object to a
// document holding a single attachment.
type CouchObjectStore struct {
	client *kivik.Client
	logger *logrus.Logger
}

func NewCouchObjectStore(client *kivik.Client, logger *logrus.Logger) *CouchObjectStore {
	return &CouchObjectStore{client: client, logger: logger}
}

type objectDoc struct {
	Key string `json:"key"`
}

func objectDocID(key string) string {
	return fmt.Sprintf("object:%s", key)
}

func attachmentName(key string) string {
	return path.Base(key)
}

func (s *CouchObjectStore) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.DBExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}

	if err := s.client.CreateDB(ctx, bucket); err != nil {
		// another writer created it in between
		if kivik.HTTPStatus(err) == http.StatusPreconditionFailed {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	s.logger.WithField("bucket", bucket).Info("Bucket created")
	return nil
}

func (s *CouchObjectStore) Put(ctx context.Context, bucket, key, contentType string, data []byte) error {
	db := s.client.DB(bucket)
	if err := db.Err(); err != nil {
		return fmt.Errorf("failed to open bucket %s: %w", bucket, err)
	}

	docID := objectDocID(key)
	rev, err := db.GetRev(ctx, docID)
	if err != nil {
		if kivik.HTTPStatus(err) != http.StatusNotFound {
			return fmt.Errorf("failed to read object revision: %w", err)
		}
		rev, err = db.Put(ctx, docID, objectDoc{Key: key})
		if err != nil {
			return fmt.Errorf("failed to create object document: %w", err)
		}
	}

	att := &kivik.Attachment{
		Filename:    attachmentName(key),
		ContentType: contentType,
		Content:     io.NopCloser(bytes.NewReader(data)),
	}
	if _, err := db.PutAttachment(ctx, docID, att, kivik.Rev(rev)); err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": bucket,
		"key":    key,
		"bytes":  len(data),
	}).Info("Object stored")
	return nil
}

func (s *CouchObjectStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	db := s.client.DB(bucket)
	att, err := db.GetAttachment(ctx, objectDocID(key), attachmentName(key))
	if err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	defer att.Content.Close()

	data, err := io.ReadAll(att.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

func (s *CouchObjectStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	db := s.client.DB(bucket)
	_, err := db.GetAttachmentMeta(ctx, objectDocID(key), attachmentName(key))
	if err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}
