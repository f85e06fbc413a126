package loader

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Source opens an asset by location. size is -1 when unknown.
type Source interface {
	Open(ctx context.Context, location string) (rc io.ReadCloser, size int64, err error)
}

// DefaultSource fetches http(s) URLs with Client and everything else from
// the local filesystem.
type DefaultSource struct {
	Client *http.Client
}

func NewSource() *DefaultSource {
	return &DefaultSource{Client: http.DefaultClient}
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func (s *DefaultSource) Open(ctx context.Context, location string) (io.ReadCloser, int64, error) {
	if !isRemote(location) {
		return openFile(ctx, location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("request %s: %w", location, err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", location, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("fetch %s: unexpected status %s", location, resp.Status)
	}
	return resp.Body, resp.ContentLength, nil
}

func openFile(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return &ctxReader{ctx: ctx, ReadCloser: f}, info.Size(), nil
}

// ctxReader stops a local read once ctx is done. HTTP bodies already do this.
type ctxReader struct {
	ctx context.Context
	io.ReadCloser
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.ReadCloser.Read(p)
}

// progressReader reports the running byte count after every read.
type progressReader struct {
	r      io.Reader
	loaded int64
	total  int64
	report func(loaded, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		if p.report != nil {
			p.report(p.loaded, p.total)
		}
	}
	return n, err
}

// resolve returns the location of ref relative to the document at base.
func resolve(base, ref string) string {
	if isRemote(base) {
		u, err := url.Parse(base)
		if err != nil {
			return ref
		}
		r, err := url.Parse(ref)
		if err != nil {
			return ref
		}
		return u.ResolveReference(r).String()
	}
	return filepath.Join(filepath.Dir(base), filepath.FromSlash(ref))
}

// sourceFS exposes the resources sitting next to a document (glTF buffers
// and images) as an fs.FS backed by a Source.
type sourceFS struct {
	ctx  context.Context
	src  Source
	base string
}

func (s sourceFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	rc, size, err := s.src.Open(s.ctx, resolve(s.base, name))
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &sourceFile{ReadCloser: rc, info: sourceFileInfo{name: path.Base(name), size: size}}, nil
}

func (s sourceFS) ReadFile(name string) ([]byte, error) {
	f, err := s.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

type sourceFile struct {
	io.ReadCloser
	info sourceFileInfo
}

func (f *sourceFile) Stat() (fs.FileInfo, error) {
	return f.info, nil
}

type sourceFileInfo struct {
	name string
	size int64
}

func (i sourceFileInfo) Name() string { return i.name }

func (i sourceFileInfo) Size() int64 {
	if i.size < 0 {
		return 0
	}
	return i.size
}

func (i sourceFileInfo) Mode() fs.FileMode { return 0o444 }
func (i sourceFileInfo) ModTime() time.Time { return time.Time{} }
func (i sourceFileInfo) IsDir() bool        { return false }
func (i sourceFileInfo) Sys() any           { return nil }
