package locations

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"go.uber.org/multierr"
)

// levelDBBatchSize is the number of writes queued before a batch is committed
const levelDBBatchSize = 50000

// LevelDB stores locations in an on-disk LevelDB database. Keys are
// big-endian ids so iteration order is id order. Writes are batched; a
// lookup commits any pending batch first.
type LevelDB struct {
	db    *leveldb.DB
	batch *leveldb.Batch
	count int
}

// OpenLevelDB opens or creates the database directory at path.
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		BlockCacheCapacity: 64 * opt.MiB,
		WriteBuffer:        32 * opt.MiB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}

	l := &LevelDB{db: db, batch: new(leveldb.Batch)}
	iter := db.NewIterator(nil, nil)
	for iter.Next() {
		l.count++
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func levelDBKey(id int64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(id))
	return k[:]
}

func (l *LevelDB) flush() error {
	if l.batch.Len() == 0 {
		return nil
	}
	if err := l.db.Write(l.batch, nil); err != nil {
		return fmt.Errorf("failed to commit leveldb batch: %w", err)
	}
	l.batch.Reset()
	return nil
}

func (l *LevelDB) Set(id int64, loc Location) error {
	if id < 0 {
		return ErrInvalidID
	}
	var v [locationSize]byte
	putLocation(v[:], loc)
	l.batch.Put(levelDBKey(id), v[:])
	l.count++
	if l.batch.Len() >= levelDBBatchSize {
		return l.flush()
	}
	return nil
}

func (l *LevelDB) Get(id int64) (Location, error) {
	if id < 0 {
		return Undefined, ErrNotFound
	}
	if err := l.flush(); err != nil {
		return Undefined, err
	}
	v, err := l.db.Get(levelDBKey(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return Undefined, ErrNotFound
	}
	if err != nil {
		return Undefined, err
	}
	if len(v) != locationSize {
		return Undefined, fmt.Errorf("corrupt location value for node %d", id)
	}
	return readLocation(v), nil
}

// Len returns the number of writes, counting repeated ids.
func (l *LevelDB) Len() int { return l.count }

func (l *LevelDB) Dump(w io.Writer) error {
	if err := l.flush(); err != nil {
		return err
	}
	return dumpList(w, func(visit visitFunc) error {
		iter := l.db.NewIterator(nil, nil)
		defer iter.Release()
		for iter.Next() {
			id := int64(binary.BigEndian.Uint64(iter.Key()))
			if err := visit(id, readLocation(iter.Value())); err != nil {
				return err
			}
		}
		return iter.Error()
	})
}

func (l *LevelDB) Close() error {
	return multierr.Append(l.flush(), l.db.Close())
}
