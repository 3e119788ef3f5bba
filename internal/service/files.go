package service

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/arencloud/strata/internal/errs"
)

// localPath checks that p names a file inside the transfer directory.
// Absolute paths and paths climbing out with ".." are rejected.
func (s *StorageService) localPath(p string) (string, error) {
	if s.opts.TransferDir == "" {
		return "", errs.Validation("local file transfers are disabled", nil)
	}
	rel := filepath.Clean(filepath.FromSlash(p))
	if rel == "." || !filepath.IsLocal(rel) {
		return "", errs.Validation("path must stay inside the transfer directory: "+p, nil)
	}
	return rel, nil
}

// openRoot opens the transfer directory; file access through the returned
// root cannot follow symlinks out of it.
func (s *StorageService) openRoot() (*os.Root, error) {
	root, err := os.OpenRoot(s.opts.TransferDir)
	if err != nil {
		return nil, errs.IO(err)
	}
	return root, nil
}

// UploadFile reads localPath, relative to the transfer directory, and
// uploads its contents as key.
func (s *StorageService) UploadFile(ctx context.Context, connID, bucket, key, localPath string) error {
	rel, err := s.localPath(localPath)
	if err != nil {
		return err
	}
	root, err := s.openRoot()
	if err != nil {
		return err
	}
	defer root.Close()
	f, err := root.Open(rel)
	if err != nil {
		s.log.Error("read local file failed", "path", rel, "error", err)
		return errs.IO(err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return errs.IO(err)
	}
	return s.Upload(ctx, connID, bucket, key, data)
}

// DownloadFile writes the object to localPath, relative to the transfer
// directory, creating parent directories. Nothing is written when the
// download fails.
func (s *StorageService) DownloadFile(ctx context.Context, connID, bucket, key, localPath string) error {
	rel, err := s.localPath(localPath)
	if err != nil {
		return err
	}
	data, err := s.Download(ctx, connID, bucket, key)
	if err != nil {
		return err
	}
	root, err := s.openRoot()
	if err != nil {
		return err
	}
	defer root.Close()
	if err := mkdirAll(root, filepath.Dir(rel)); err != nil {
		return errs.IO(err)
	}
	f, err := root.OpenFile(rel, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		s.log.Error("write local file failed", "path", rel, "error", err)
		return errs.IO(err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errs.IO(err)
	}
	if err := f.Close(); err != nil {
		return errs.IO(err)
	}
	s.log.Info("object saved", "bucket", bucket, "key", key, "path", rel)
	return nil
}

func mkdirAll(root *os.Root, dir string) error {
	if dir == "." {
		return nil
	}
	cur := ""
	for _, part := range strings.Split(dir, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		if err := root.Mkdir(cur, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}
