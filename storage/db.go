package storage

import (
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
)

// openDB opens LevelDB at path, or an in-memory backend when path is
// empty.
func openDB(path string) (*leveldb.DB, error) {
	if path == "" {
		return leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	}
	return leveldb.OpenFile(path, nil)
}
