// Package file provides a writer.Destination over local files.
package file

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"syscall"

	bferrors "github.com/vnykmshr/byteflow/pkg/common/errors"
	"github.com/vnykmshr/byteflow/pkg/common/validation"
	"github.com/vnykmshr/byteflow/pkg/streaming/writer"
)

// DefaultPerm is the permission used when creating files.
const DefaultPerm fs.FileMode = 0o644

// Destination appends to an *os.File. The position is tracked from the file
// size at open time, since an O_APPEND descriptor reports offset 0 until the
// first write.
type Destination struct {
	f    *os.File
	path string
	pos  uint64
}

// New wraps an open file and seeks it to its end.
func New(f *os.File) (*Destination, error) {
	if err := validation.ValidateNotNil("file", "File", f); err != nil {
		return nil, err
	}
	pos, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, mapError(err)
	}
	return &Destination{f: f, path: f.Name(), pos: uint64(pos)}, nil
}

// Append writes p at the end of the file.
func (d *Destination) Append(p []byte) error {
	n, err := d.f.Write(p)
	d.pos += uint64(n)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// Flush is a no-op: os.File writes are handed to the kernel immediately and
// are already visible to other processes.
func (d *Destination) Flush() error {
	return nil
}

// Sync commits the file to stable storage.
func (d *Destination) Sync() error {
	return mapError(d.f.Sync())
}

// Tell returns the end position.
func (d *Destination) Tell() (uint64, error) {
	return d.pos, nil
}

// Name returns the file path.
func (d *Destination) Name() (string, error) {
	return d.path, nil
}

// Close closes the file.
func (d *Destination) Close() error {
	return mapError(d.f.Close())
}

// File returns the underlying file.
func (d *Destination) File() *os.File {
	return d.f
}

// Provider opens local files for appending.
type Provider struct {
	// Perm is the mode for newly created files. Default: 0644
	Perm fs.FileMode

	// Truncate discards existing contents instead of appending.
	Truncate bool
}

// NewProvider returns a Provider that creates files with DefaultPerm and
// appends to existing ones.
func NewProvider() *Provider {
	return &Provider{Perm: DefaultPerm}
}

// OpenAppendable opens path for appending, creating it if needed.
func (p *Provider) OpenAppendable(path string) (writer.Destination, error) {
	if err := validation.ValidateNotEmpty("file", "Path", path); err != nil {
		return nil, err
	}
	perm := p.Perm
	if perm == 0 {
		perm = DefaultPerm
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if p.Truncate {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, perm)
	if err != nil {
		return nil, mapError(err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, mapError(err)
	}
	return &Destination{f: f, path: path, pos: uint64(info.Size())}, nil
}

// mapError converts an os error into an errors.Status carrying a generic
// category. The original error stays reachable through errors.Is.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	code := bferrors.CodeUnknown
	switch {
	case errors.Is(err, fs.ErrNotExist):
		code = bferrors.CodeNotFound
	case errors.Is(err, fs.ErrPermission):
		code = bferrors.CodePermissionDenied
	case errors.Is(err, fs.ErrExist):
		code = bferrors.CodeAlreadyExists
	case errors.Is(err, fs.ErrClosed):
		code = bferrors.CodeFailedPrecondition
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.EDQUOT), errors.Is(err, syscall.EFBIG):
		code = bferrors.CodeResourceExhausted
	case errors.Is(err, syscall.EINVAL):
		code = bferrors.CodeInvalidArgument
	case errors.Is(err, syscall.EIO):
		code = bferrors.CodeDataLoss
	}
	return &bferrors.Status{Code: code, Message: err.Error(), Cause: err}
}
