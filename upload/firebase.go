package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go"
	"github.com/google/uuid"
)

const downloadTokenKey = "firebaseStorageDownloadTokens"

// FirebaseStore writes objects to the project's Firebase Storage bucket and
// returns token download URLs, the same URLs the Firebase client SDKs hand out.
type FirebaseStore struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

// NewFirebaseStore opens bucketName through the app's Storage client.
func NewFirebaseStore(ctx context.Context, app *firebase.App, bucketName string) (*FirebaseStore, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %q: %w", bucketName, err)
	}
	return &FirebaseStore{bucket: bucket, bucketName: bucketName}, nil
}

func (s *FirebaseStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	token := uuid.NewString()

	w := s.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{downloadTokenKey: token}

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write object %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %w", path, err)
	}

	return downloadURL(s.bucketName, path, token), nil
}

func (s *FirebaseStore) Delete(ctx context.Context, path string) error {
	err := s.bucket.Object(path).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object %s: %w", path, err)
	}
	return nil
}

func downloadURL(bucket, path, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(path), url.QueryEscape(token))
}
