package handlers

import (
	"context"
	"io"
	"mime"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"

	"github.com/grigorimaxim422/atom/config"
	"github.com/grigorimaxim422/atom/logger"
)

var _ ObjectStore = (*GCSHandler)(nil)

// CustomMIMETypes covers artifact extensions the platform mime tables don't
// know about.
var CustomMIMETypes = map[string]string{
	".pt":          "application/octet-stream",
	".safetensors": "application/octet-stream",
	".npz":         "application/octet-stream",
	".jsonl":       "application/jsonl",
	".mid":         "audio/midi",
	".wav":         "audio/wav",
}

// GCSHandler stores bulk artifacts in a Google Cloud Storage bucket.
type GCSHandler struct {
	Config config.Config `inject:""`
	Logger logger.Logger `inject:""`

	bucket string
	client *storage.Client
}

func (h *GCSHandler) Start() error {
	bucket, err := h.Config.GetObjectStoreBucket()
	if err != nil {
		return err
	}
	if bucket == "" {
		return errors.New("an object store bucket is required")
	}
	h.bucket = bucket

	if h.client == nil {
		client, err := storage.NewClient(context.Background())
		if err != nil {
			return errors.Wrap(err, "failed to create object store client")
		}
		h.client = client
	}
	return nil
}

func (h *GCSHandler) Stop() error {
	if h.client != nil {
		return h.client.Close()
	}
	return nil
}

func (h *GCSHandler) Put(ctx context.Context, key string, data []byte, public bool) error {
	w := h.client.Bucket(h.bucket).Object(key).NewWriter(ctx)
	w.ContentType = ContentTypeFor(key)
	if public {
		w.PredefinedACL = "publicRead"
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return errors.Wrapf(err, "failed to upload object %s", key)
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "failed to finalize object %s", key)
	}
	h.Logger.Debugf("uploaded object %s (%d bytes)", key, len(data))
	return nil
}

func (h *GCSHandler) Get(ctx context.Context, key string) ([]byte, bool, error) {
	r, err := h.client.Bucket(h.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "failed to open object %s", key)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read object %s", key)
	}
	return data, true, nil
}

// ContentTypeFor infers a MIME type from the key's extension, falling back to
// octet-stream.
func ContentTypeFor(key string) string {
	ext := filepath.Ext(key)
	if ct, ok := CustomMIMETypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
