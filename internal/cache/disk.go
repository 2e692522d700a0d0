package cache

import (
	"bytes"
	"encoding/gob"
	"log"
	"sort"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	entryPrefix = "e:"
	metaPrefix  = "m:"
)

type diskMeta struct {
	Size     int64
	StoredAt int64 // unix nanoseconds
}

type diskOp struct {
	put    *Entry
	delKey string
}

// DiskStore mirrors cache entries into leveldb. All writes go through a
// single writer goroutine; reads hit leveldb directly.
type DiskStore struct {
	maxBytes int64

	db *leveldb.DB

	mu        sync.Mutex
	index     map[string]diskMeta
	totalSize int64

	// closeMu orders writers against Close; sends after Close are dropped.
	closeMu sync.RWMutex
	closed  bool
	ops     chan diskOp
	done    chan struct{}
}

// OpenDisk opens (or creates) the store at path. maxBytes of zero disables
// size-based eviction.
func OpenDisk(path string, maxBytes int64) (*DiskStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	d := &DiskStore{
		maxBytes: maxBytes,
		db:       db,
		index:    map[string]diskMeta{},
		ops:      make(chan diskOp, 1024),
		done:     make(chan struct{}),
	}
	if err := d.loadIndex(); err != nil {
		_ = db.Close()
		return nil, err
	}
	go d.writerLoop()
	return d, nil
}

// Close drains pending writes and closes the database. Later writes are
// ignored.
func (d *DiskStore) Close() {
	d.closeMu.Lock()
	if d.closed {
		d.closeMu.Unlock()
		return
	}
	d.closed = true
	close(d.ops)
	d.closeMu.Unlock()

	<-d.done
	_ = d.db.Close()
}

func (d *DiskStore) TotalSize() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.totalSize
}

func (d *DiskStore) PutAsync(e Entry) {
	d.closeMu.RLock()
	defer d.closeMu.RUnlock()
	if d.closed {
		return
	}
	clone := e
	d.ops <- diskOp{put: &clone}
}

// Delete queues removal of key without blocking. When the queue is full the
// delete is dropped; the expired record is removed again on the next restore.
func (d *DiskStore) Delete(key string) {
	d.closeMu.RLock()
	defer d.closeMu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.ops <- diskOp{delKey: key}:
	default:
		log.Printf("cache: disk queue full, dropping delete of %q", key)
	}
}

// Entries decodes every stored entry. Undecodable records are skipped.
func (d *DiskStore) Entries() ([]Entry, error) {
	it := d.db.NewIterator(util.BytesPrefix([]byte(entryPrefix)), nil)
	defer it.Release()

	var out []Entry
	for it.Next() {
		var e Entry
		if err := decodeGob(it.Value(), &e); err != nil {
			log.Printf("cache: skip undecodable disk entry %q: %v", it.Key(), err)
			continue
		}
		out = append(out, e)
	}
	return out, it.Error()
}

func (d *DiskStore) loadIndex() error {
	it := d.db.NewIterator(util.BytesPrefix([]byte(metaPrefix)), nil)
	defer it.Release()

	var total int64
	idx := map[string]diskMeta{}
	for it.Next() {
		key := string(bytes.TrimPrefix(it.Key(), []byte(metaPrefix)))
		var meta diskMeta
		if err := decodeGob(it.Value(), &meta); err != nil {
			continue
		}
		idx[key] = meta
		total += meta.Size
	}
	if err := it.Error(); err != nil {
		return err
	}
	d.mu.Lock()
	d.index = idx
	d.totalSize = total
	d.mu.Unlock()
	return nil
}

func (d *DiskStore) writerLoop() {
	defer close(d.done)
	for op := range d.ops {
		switch {
		case op.put != nil:
			d.applyPut(*op.put)
		case op.delKey != "":
			d.applyDelete(op.delKey)
		}
	}
}

func (d *DiskStore) applyPut(e Entry) {
	b, err := encodeGob(e)
	if err != nil {
		log.Printf("cache: encode %q: %v", e.Key, err)
		return
	}
	meta := diskMeta{Size: int64(len(b)), StoredAt: e.StoredAt.UnixNano()}
	mb, err := encodeGob(meta)
	if err != nil {
		return
	}

	batch := new(leveldb.Batch)
	batch.Put([]byte(entryPrefix+e.Key), b)
	batch.Put([]byte(metaPrefix+e.Key), mb)
	if err := d.db.Write(batch, nil); err != nil {
		log.Printf("cache: write %q: %v", e.Key, err)
		return
	}

	d.mu.Lock()
	d.totalSize -= d.index[e.Key].Size
	d.index[e.Key] = meta
	d.totalSize += meta.Size
	over := d.maxBytes > 0 && d.totalSize > d.maxBytes
	d.mu.Unlock()

	if over {
		d.evictOldest()
	}
}

func (d *DiskStore) applyDelete(key string) {
	batch := new(leveldb.Batch)
	batch.Delete([]byte(entryPrefix + key))
	batch.Delete([]byte(metaPrefix + key))
	if err := d.db.Write(batch, nil); err != nil {
		log.Printf("cache: delete %q: %v", key, err)
		return
	}

	d.mu.Lock()
	if meta, ok := d.index[key]; ok {
		d.totalSize -= meta.Size
		delete(d.index, key)
	}
	d.mu.Unlock()
}

// evictOldest drops the oldest tenth of the entries (at least one).
func (d *DiskStore) evictOldest() {
	type keyed struct {
		key string
		at  int64
	}
	d.mu.Lock()
	items := make([]keyed, 0, len(d.index))
	for k, m := range d.index {
		items = append(items, keyed{k, m.StoredAt})
	}
	d.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].at < items[j].at })

	n := max(len(items)/10, 1)
	for i := 0; i < n && i < len(items); i++ {
		d.applyDelete(items[i].key)
	}
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
