package qrstore

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-bankid-auth/authflow"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FileStore writes each code to its own PNG file and removes it on release.
type FileStore struct {
	dir string
}

var _ authflow.CodeStore = (*FileStore)(nil)

// NewFileStore creates dir if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "[NewFileStore] %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Create(png []byte) (authflow.Code, error) {
	if len(png) == 0 {
		return authflow.Code{}, errors.New("[FileStore Create] empty image")
	}
	id := uuid.NewString()
	path := filepath.Join(s.dir, "bankid-qr-"+id+".png")
	if err := os.WriteFile(path, png, 0o600); err != nil {
		return authflow.Code{}, errors.Wrap(err, "[FileStore Create]")
	}
	return authflow.Code{ID: id, URI: path}, nil
}

func (s *FileStore) Release(code authflow.Code) {
	if err := os.Remove(code.URI); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", code.URI).Msg("Failed to remove QR code file")
	}
}
