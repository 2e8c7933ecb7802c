// Package codec maps file extensions to streaming compression codecs so that
// sources and sinks can read and write compressed files transparently.
package codec

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec wraps readers and writers with a compression format
type Codec interface {
	Name() string
	Extensions() []string
	NewReader(r io.Reader) (io.ReadCloser, error)
	NewWriter(w io.Writer) (io.WriteCloser, error)
}

var (
	mu     sync.RWMutex
	byName = map[string]Codec{}
	byExt  = map[string]Codec{}
)

func init() {
	for _, c := range []Codec{Gzip{}, Zstd{}, Snappy{}, LZ4{}} {
		Register(c)
	}
}

// Register adds a codec, replacing any codec with the same name or extension
func Register(c Codec) {
	mu.Lock()
	defer mu.Unlock()
	byName[strings.ToLower(c.Name())] = c
	for _, ext := range c.Extensions() {
		byExt[strings.ToLower(ext)] = c
	}
}

// Lookup returns the codec with the given name. "" and "none" return nil
// with no error, meaning uncompressed.
func Lookup(name string) (Codec, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "none" {
		return nil, nil
	}
	mu.RLock()
	defer mu.RUnlock()
	c, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown compression %q (supported: %s)", name, strings.Join(namesLocked(), ", "))
	}
	return c, nil
}

// Names lists the registered codec names in sorted order
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ForPath returns the codec for the file's last extension, or nil
func ForPath(path string) Codec {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil
	}
	mu.RLock()
	defer mu.RUnlock()
	return byExt[ext]
}

// TrimExt strips a compression extension, so "a.csv.gz" becomes "a.csv"
func TrimExt(path string) string {
	if ForPath(path) == nil {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// Open opens a file for reading and decompresses it according to its
// extension
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	c := ForPath(path)
	if c == nil {
		return f, nil
	}
	r, err := c.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to open %s stream: %w", c.Name(), err)
	}
	return &stackedCloser{Reader: r, closers: []io.Closer{r, f}}, nil
}

// Create creates a file for writing and compresses it according to its
// extension. Closing the writer flushes the codec and closes the file.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	c := ForPath(path)
	if c == nil {
		return f, nil
	}
	w, err := c.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to open %s stream: %w", c.Name(), err)
	}
	return &stackedWriter{Writer: w, closers: []io.Closer{w, f}}, nil
}

// stackedCloser closes the codec stream before the underlying file
type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	return closeAll(s.closers)
}

type stackedWriter struct {
	io.Writer
	closers []io.Closer
}

func (s *stackedWriter) Close() error {
	return closeAll(s.closers)
}

func closeAll(closers []io.Closer) error {
	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Gzip is the gzip format
type Gzip struct{}

func (Gzip) Name() string         { return "gzip" }
func (Gzip) Extensions() []string { return []string{".gz", ".gzip"} }

func (Gzip) NewReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

func (Gzip) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

// Zstd is the Zstandard format
type Zstd struct{}

func (Zstd) Name() string         { return "zstd" }
func (Zstd) Extensions() []string { return []string{".zst", ".zstd"} }

func (Zstd) NewReader(r io.Reader) (io.ReadCloser, error) {
	d, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return d.IOReadCloser(), nil
}

func (Zstd) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}

// Snappy is the snappy framing format
type Snappy struct{}

func (Snappy) Name() string         { return "snappy" }
func (Snappy) Extensions() []string { return []string{".sz", ".snappy"} }

func (Snappy) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(snappy.NewReader(r)), nil
}

func (Snappy) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return snappy.NewBufferedWriter(w), nil
}

// LZ4 is the lz4 frame format
type LZ4 struct{}

func (LZ4) Name() string         { return "lz4" }
func (LZ4) Extensions() []string { return []string{".lz4"} }

func (LZ4) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

func (LZ4) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}
