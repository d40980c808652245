package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// LocalRoutePrefix is where the server exposes objects of the local backend.
const LocalRoutePrefix = "/files/"

// LocalStorage keeps objects on an afero filesystem.
// Used for development and single-node deployments; tests use a MemMapFs.
type LocalStorage struct {
	fs      afero.Fs
	baseURL string
}

// NewLocalDisk roots a LocalStorage at dir on the OS filesystem.
func NewLocalDisk(dir, baseURL string) (*LocalStorage, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return NewLocalStorage(afero.NewBasePathFs(afero.NewOsFs(), dir), baseURL), nil
}

func NewLocalStorage(fsys afero.Fs, baseURL string) *LocalStorage {
	return &LocalStorage{fs: fsys, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)
	if cleaned == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return cleaned, nil
}

func (s *LocalStorage) Save(ctx context.Context, key string, body io.Reader, opts SaveOptions) error {
	name, err := cleanKey(key)
	if err != nil {
		return err
	}

	err = s.fs.MkdirAll(path.Dir(name), 0755)
	if err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !opts.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	f, err := s.fs.OpenFile(name, flags, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrObjectExists
		}
		return fmt.Errorf("failed to create object: %w", err)
	}

	_, err = io.Copy(f, readerWithContext(ctx, body))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(name)
		return fmt.Errorf("failed to write object: %w", err)
	}

	return nil
}

func (s *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	name, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	f, err := s.fs.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return f, nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	name, err := cleanKey(key)
	if err != nil {
		return err
	}

	err = s.fs.Remove(name)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// URL points at the app route serving local objects. Links do not expire on their own.
func (s *LocalStorage) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	name, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/" + (&url.URL{Path: strings.TrimPrefix(name, "/")}).EscapedPath(), nil
}

// Handler serves stored objects below LocalRoutePrefix. Directory listings are not exposed.
func (s *LocalStorage) Handler() http.Handler {
	files := http.FileServer(afero.NewHttpFs(s.fs))
	return http.StripPrefix(strings.TrimSuffix(LocalRoutePrefix, "/"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Disposition", "attachment")
		files.ServeHTTP(w, r)
	}))
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
