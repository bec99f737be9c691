package file

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"PShare/tools/errs"

	"github.com/google/uuid"
)

// BlobStore keeps uploaded bytes on local disk under random names.
type BlobStore struct {
	dir string
}

func NewBlobStore(dir string) (*BlobStore, error) {
	if dir == "" {
		return nil, errs.New("upload dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.WrapMsg(err, "create upload dir", "dir", dir)
	}
	return &BlobStore{dir: dir}, nil
}

// storedName keeps only a short, plain extension from the uploader's name.
func storedName(original string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return uuid.NewString() + ext
}

// Save copies r into a new blob and returns its stored name and size.
func (b *BlobStore) Save(original string, r io.Reader) (string, int64, error) {
	name := storedName(original)
	f, err := os.OpenFile(filepath.Join(b.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, errs.WrapMsg(err, "create blob", "name", name)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", 0, errs.WrapMsg(err, "write blob", "name", name)
	}
	return name, n, nil
}

// Path resolves a stored name; names that would escape the upload dir are refused.
func (b *BlobStore) Path(stored string) (string, error) {
	if stored == "" || stored != filepath.Base(stored) || stored == "." || stored == ".." {
		return "", errs.ErrNotFound.WrapMsg("bad blob name", "name", stored)
	}
	p := filepath.Join(b.dir, stored)
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return "", errs.ErrNotFound.WrapMsg("File does not exist on server")
		}
		return "", errs.WrapMsg(err, "stat blob", "name", stored)
	}
	return p, nil
}

func (b *BlobStore) Remove(stored string) error {
	if stored == "" || stored != filepath.Base(stored) {
		return nil
	}
	err := os.Remove(filepath.Join(b.dir, stored))
	if err != nil && !os.IsNotExist(err) {
		return errs.WrapMsg(err, "remove blob", "name", stored)
	}
	return nil
}
