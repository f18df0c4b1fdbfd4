package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"city-samadhan/types"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Kind string

const (
	Image Kind = "image"
	Audio Kind = "audio"
)

// Asset is a captured file staged on local disk, waiting for upload.
type Asset struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	Name        string `json:"name"`
	Path        string `json:"-"`
	ContentType string `json:"contentType"`
	Extension   string `json:"extension"`
	Size        int64  `json:"size"`
}

// phone recorders often produce mp4/3gp containers holding only audio
var audioContainers = map[string]bool{
	"video/mp4":  true,
	"video/3gpp": true,
	"video/webm": true,
}

// Stager keeps captured assets in a private directory until they are uploaded or discarded.
type Stager struct {
	dir      string
	maxBytes int64
	log      logrus.FieldLogger
}

func NewStager(baseDir string, maxBytes int64, log logrus.FieldLogger) (*Stager, error) {
	dir := filepath.Join(baseDir, "city-samadhan-media")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create staging dir %s: %w", dir, err)
	}
	return &Stager{dir: dir, maxBytes: maxBytes, log: log}, nil
}

// Stage copies r into the staging directory and checks that its content matches kind.
func (s *Stager) Stage(kind Kind, name string, r io.Reader) (Asset, error) {
	const op = "media.Stage"

	id := uuid.NewString()
	path := filepath.Join(s.dir, id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return Asset{}, types.E(types.KindInternal, op, err)
	}

	// read one byte past the cap so oversize input is detectable
	n, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		s.remove(path)
		return Asset{}, types.E(types.KindInternal, op, fmt.Errorf("failed to write %s: %w", name, err))
	}
	if n == 0 {
		s.remove(path)
		return Asset{}, types.Errorf(types.KindValidation, op, "%s is empty", displayName(name))
	}
	if n > s.maxBytes {
		s.remove(path)
		return Asset{}, types.Errorf(types.KindValidation, op, "%s exceeds %d bytes", displayName(name), s.maxBytes)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		s.remove(path)
		return Asset{}, types.E(types.KindInternal, op, err)
	}
	if !matches(kind, mt) {
		s.remove(path)
		return Asset{}, types.Errorf(types.KindValidation, op, "%s is %s, expected %s", displayName(name), mt.String(), kind)
	}

	asset := Asset{
		ID:          id,
		Kind:        kind,
		Name:        name,
		Path:        path,
		ContentType: mt.String(),
		Extension:   mt.Extension(),
		Size:        n,
	}
	s.log.WithFields(logrus.Fields{"asset": id, "kind": kind, "content_type": asset.ContentType, "size": n}).Debug("Staged media asset")
	return asset, nil
}

func matches(kind Kind, mt *mimetype.MIME) bool {
	base := strings.SplitN(mt.String(), ";", 2)[0]
	switch kind {
	case Image:
		return strings.HasPrefix(base, "image/")
	case Audio:
		return strings.HasPrefix(base, "audio/") || audioContainers[base]
	}
	return false
}

// Open returns a reader over a staged asset.
func Open(a Asset) (io.ReadCloser, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open staged asset %s: %w", a.ID, err)
	}
	return f, nil
}

// Discard removes staged files. Missing files are ignored.
func (s *Stager) Discard(assets ...Asset) {
	for _, a := range assets {
		s.remove(a.Path)
	}
}

func (s *Stager) remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.WithError(err).WithField("path", path).Warn("Failed to remove staged media")
	}
}

func displayName(name string) string {
	if name == "" {
		return "file"
	}
	return name
}
