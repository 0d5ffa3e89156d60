package bench

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const mib = 1 << 20

// fileSet is the fixed set of random test files one benchmark streams
// through the transport. Contents come from crypto/rand so the payload
// is non-compressible and transport-level compression cannot inflate
// the apparent rate.
type fileSet struct {
	dir        string
	paths      []string
	totalBytes int64
}

func generateTestFiles(baseDir string, count, sizeMB int) (*fileSet, error) {
	if count <= 0 {
		count = 3
	}
	if sizeMB <= 0 {
		sizeMB = 10
	}

	dir, err := os.MkdirTemp(baseDir, "netmond_nettest_")
	if err != nil {
		return nil, fmt.Errorf("create test dir: %w", err)
	}

	fs := &fileSet{dir: dir}
	buf := make([]byte, mib)
	for i := 0; i < count; i++ {
		path := filepath.Join(dir, fmt.Sprintf("netmond_nettest_%d.iotest", i))
		f, err := os.Create(path)
		if err != nil {
			fs.cleanup()
			return nil, fmt.Errorf("create test file: %w", err)
		}
		for m := 0; m < sizeMB; m++ {
			if _, err := rand.Read(buf); err != nil {
				f.Close()
				fs.cleanup()
				return nil, fmt.Errorf("fill test file: %w", err)
			}
			if _, err := f.Write(buf); err != nil {
				f.Close()
				fs.cleanup()
				return nil, fmt.Errorf("write test file: %w", err)
			}
		}
		if err := f.Close(); err != nil {
			fs.cleanup()
			return nil, err
		}
		fs.paths = append(fs.paths, path)
		fs.totalBytes += int64(sizeMB) * mib
	}
	return fs, nil
}

// open returns a fresh sequential reader over all test files.
// Each transfer needs its own reader so runs never share offsets.
func (fs *fileSet) open() (io.ReadCloser, error) {
	files := make([]*os.File, 0, len(fs.paths))
	readers := make([]io.Reader, 0, len(fs.paths))
	for _, p := range fs.paths {
		f, err := os.Open(p)
		if err != nil {
			for _, o := range files {
				o.Close()
			}
			return nil, err
		}
		files = append(files, f)
		readers = append(readers, f)
	}
	return &multiFileReader{r: io.MultiReader(readers...), files: files}, nil
}

func (fs *fileSet) cleanup() {
	if fs.dir != "" {
		_ = os.RemoveAll(fs.dir)
	}
}

type multiFileReader struct {
	r     io.Reader
	files []*os.File
}

func (m *multiFileReader) Read(p []byte) (int, error) { return m.r.Read(p) }

func (m *multiFileReader) Close() error {
	var first error
	for _, f := range m.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
