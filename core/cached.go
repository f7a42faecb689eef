package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// ExistsCached answers from the snapshot without calling the host.
// ok is false when the snapshot is disabled or holds nothing fresh for path;
// the caller must then use Exists.
func (f *FS) ExistsCached(path string) (exists, ok bool) {
	if f.snapshot == nil {
		return false, false
	}
	return f.snapshot.Exists(path)
}

// ReadFileCached returns contents a previous ReadFile, WriteFile or
// AppendFile saw, decoded with encoding. ok is false when nothing fresh is
// cached or the contents do not decode.
func (f *FS) ReadFileCached(path, encoding string) (string, bool) {
	if f.snapshot == nil {
		return "", false
	}
	data, ok := f.snapshot.Data(path)
	if !ok {
		return "", false
	}
	c, err := f.codec(encoding)
	if err != nil {
		return "", false
	}
	text, err := c.decode(data)
	if err != nil {
		return "", false
	}
	return text, true
}

// Refresh asks the host again about every path in the snapshot. Paths whose
// contents were cached are re-read, the others are re-checked for existence.
func (f *FS) Refresh(ctx context.Context) error {
	if f.snapshot == nil {
		return nil
	}
	paths, withData := f.snapshot.Paths()

	var errs []error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !withData[p] {
			f.Exists(ctx, p)
			continue
		}
		data, err := f.host.ReadFile(ctx, p)
		if err != nil {
			f.forgetMissing(p, err)
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("refresh %s: %w", p, err))
			}
			continue
		}
		f.snapshot.SetData(p, data)
	}
	return errors.Join(errs...)
}
