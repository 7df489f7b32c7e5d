package indexer

import (
	"fmt"
	"os"
	"path/filepath"
)

const itemSize = 20

// DiskSet is an append-only-with-swap-delete set of fixed-width 20-byte
// items backed by a single file with no header or framing. Operations
// take exclusive access; callers serialize concurrent use.
type DiskSet struct {
	path string
}

// NewDiskSet opens (creating if necessary, along with its parent
// directory) the DiskSet file at path.
func NewDiskSet(path string) (*DiskSet, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create diskset dir %s: %v", ErrIoFailure, path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open diskset %s: %v", ErrIoFailure, path, err)
	}
	defer f.Close()
	return &DiskSet{path: path}, nil
}

// Contains performs a linear scan from offset 0, 20 bytes at a time.
func (d *DiskSet) Contains(item ObjectHash) (bool, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return false, fmt.Errorf("%w: open diskset %s: %v", ErrIoFailure, d.path, err)
	}
	defer f.Close()

	buf := make([]byte, itemSize)
	for {
		n, err := f.Read(buf)
		if n == itemSize && ObjectHash(buf[:itemSize]) == item {
			return true, nil
		}
		if err != nil {
			break
		}
	}
	return false, nil
}

// Add appends item at the end if not already present.
func (d *DiskSet) Add(item ObjectHash) error {
	found, err := d.Contains(item)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	f, err := os.OpenFile(d.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open diskset %s for append: %v", ErrIoFailure, d.path, err)
	}
	defer f.Close()

	if _, err := f.Write(item[:]); err != nil {
		return fmt.Errorf("%w: append to diskset %s: %v", ErrIoFailure, d.path, err)
	}
	return f.Sync()
}

// Remove performs a linear scan for item; on a hit it copies the file's
// last 20-byte slot into the matched slot and truncates the file by 20
// bytes. Ordering is not preserved and is not contractual.
func (d *DiskSet) Remove(item ObjectHash) error {
	f, err := os.OpenFile(d.path, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open diskset %s: %v", ErrIoFailure, d.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat diskset %s: %v", ErrIoFailure, d.path, err)
	}
	size := info.Size()
	if size == 0 {
		return nil
	}

	buf := make([]byte, itemSize)
	var matchPos int64 = -1
	for pos := int64(0); pos+itemSize <= size; pos += itemSize {
		if _, err := f.ReadAt(buf, pos); err != nil {
			return fmt.Errorf("%w: read diskset %s: %v", ErrIoFailure, d.path, err)
		}
		if ObjectHash(buf) == item {
			matchPos = pos
			break
		}
	}
	if matchPos == -1 {
		return nil
	}

	lastPos := size - itemSize
	if matchPos != lastPos {
		last := make([]byte, itemSize)
		if _, err := f.ReadAt(last, lastPos); err != nil {
			return fmt.Errorf("%w: read diskset %s: %v", ErrIoFailure, d.path, err)
		}
		if _, err := f.WriteAt(last, matchPos); err != nil {
			return fmt.Errorf("%w: write diskset %s: %v", ErrIoFailure, d.path, err)
		}
	}
	if err := f.Truncate(lastPos); err != nil {
		return fmt.Errorf("%w: truncate diskset %s: %v", ErrIoFailure, d.path, err)
	}
	return nil
}
