// fs_resource.go - Host directory exposed as a coprocessor file tree

package starlet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/intuitionamiga/IntuitionHAL/ipc"
)

// FSResource serves files from a host directory. Names that would leave
// the directory are refused with EACCES.
type FSResource struct {
	baseDir string
}

func NewFSResource(baseDir string) (*FSResource, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absBase)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("starlet: %s is not a directory", absBase)
	}
	return &FSResource{baseDir: absBase}, nil
}

// sanitizePath ensures name is safe and stays within baseDir.
func (r *FSResource) sanitizePath(name string) (string, bool) {
	if name == "" || filepath.IsAbs(name) || strings.Contains(name, "..") {
		return "", false
	}

	fullPath := filepath.Join(r.baseDir, name)

	rel, err := filepath.Rel(r.baseDir, fullPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return fullPath, true
}

func (r *FSResource) Open(name string, mode ipc.Mode) (Handle, error) {
	fullPath, ok := r.sanitizePath(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q escapes the mount", EACCES, name)
	}
	flags, err := openFlags(mode)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(fullPath, flags, 0644)
	if err != nil {
		return nil, err
	}
	return &fileHandle{f: f}, nil
}

type fileHandle struct {
	Unsupported
	f *os.File
}

func (h *fileHandle) Read(p []byte) (int32, error) {
	n, err := io.ReadFull(h.f, p)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	return int32(n), err
}

func (h *fileHandle) Write(p []byte) (int32, error) {
	n, err := h.f.Write(p)
	return int32(n), err
}

// Seek returns the new offset.
func (h *fileHandle) Seek(offset int32, whence ipc.Whence) (int32, error) {
	var w int
	switch whence {
	case ipc.SEEK_START:
		w = io.SeekStart
	case ipc.SEEK_CURRENT:
		w = io.SeekCurrent
	case ipc.SEEK_END:
		w = io.SeekEnd
	default:
		return 0, fmt.Errorf("%w: whence %d", EINVAL, whence)
	}
	pos, err := h.f.Seek(int64(offset), w)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", EINVAL, err)
	}
	return int32(pos), nil
}

func (h *fileHandle) Close() error {
	return h.f.Close()
}
