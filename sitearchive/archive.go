package sitearchive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

var ErrMemberNotFound = errors.New("archive member not found")

// Declared sizes come from the archive and are trusted only this far when
// pre-sizing the extraction buffer.
const maxPrealloc = 64 << 20

// Extractor reads a whole archive member by name.
type Extractor interface {
	Extract(ctx context.Context, name string) ([]byte, error)
}

type archiveHandle struct {
	rc      *zip.ReadCloser
	members map[string]*zip.File
}

func openArchiveHandle(path string) (*archiveHandle, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	rc.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	h := &archiveHandle{
		rc:      rc,
		members: make(map[string]*zip.File, len(rc.File)),
	}
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		// First entry wins.
		if _, dup := h.members[f.Name]; !dup {
			h.members[f.Name] = f
		}
	}
	return h, nil
}

// ArchiveReader owns the open zip file. Each handle holds decompression
// state that must not be shared, so a handle serves one extraction at a
// time; with a single handle every extraction in the process is serialized.
type ArchiveReader struct {
	path    string
	handles chan *archiveHandle
	all     []*archiveHandle
}

var _ Extractor = (*ArchiveReader)(nil)

// OpenArchive opens path handles times (at least once).
func OpenArchive(path string, handles int) (*ArchiveReader, error) {
	if handles <= 0 {
		handles = 1
	}
	a := &ArchiveReader{
		path:    path,
		handles: make(chan *archiveHandle, handles),
	}
	for i := 0; i < handles; i++ {
		h, err := openArchiveHandle(path)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("open archive %s: %w", path, err)
		}
		a.all = append(a.all, h)
		a.handles <- h
	}
	return a, nil
}

// Len is the number of file members in the archive.
func (a *ArchiveReader) Len() int {
	if len(a.all) == 0 {
		return 0
	}
	return len(a.all[0].members)
}

// Extract returns the decompressed content of member name. Waiting for a
// free handle stops when ctx is done; an extraction already under way runs
// to completion.
func (a *ArchiveReader) Extract(ctx context.Context, name string) ([]byte, error) {
	var h *archiveHandle
	select {
	case h = <-a.handles:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { a.handles <- h }()

	f, ok := h.members[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, name)
	}
	return readMember(f)
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open member %s: %w", f.Name, err)
	}
	defer rc.Close()

	size := f.UncompressedSize64
	if size > maxPrealloc {
		size = maxPrealloc
	}
	buf := bytes.NewBuffer(make([]byte, 0, int(size)+bytes.MinRead))
	if _, err := io.Copy(buf, rc); err != nil {
		return nil, fmt.Errorf("read member %s: %w", f.Name, err)
	}
	return buf.Bytes(), nil
}

func (a *ArchiveReader) Close() error {
	var errs []error
	for _, h := range a.all {
		if err := h.rc.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.all = nil
	return errors.Join(errs...)
}
