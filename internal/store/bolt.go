package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"
	bolterrors "go.etcd.io/bbolt/errors"

	"github.com/aweris/site"
	"github.com/aweris/site/internal/compression"
)

var (
	keySite     = []byte("site")
	bucketFiles = []byte("files")
)

// ErrInUse is returned when another process holds the database lock.
var ErrInUse = errors.New("store: database is in use")

const defaultOpenTimeout = time.Second

// Options configures a BoltStore.
type Options struct {
	Compression      bool
	CompressionLevel int
	CacheSize        int
	// OpenTimeout bounds the wait for the database file lock.
	OpenTimeout time.Duration
	Logger      *slog.Logger
}

// DefaultOptions returns compression on at the default level and a small
// body cache.
func DefaultOptions() Options {
	return Options{
		Compression:      true,
		CompressionLevel: 2,
		CacheSize:        256,
		OpenTimeout:      defaultOpenTimeout,
	}
}

// BoltStore implements Store on a bbolt database.
//
// Layout:
//
//	<site name>/          (bucket per site)
//	  site                (JSON site record)
//	  files/              (nested bucket)
//	    <digest value>    (marker byte + body, zstd when smaller)
type BoltStore struct {
	// mu orders cache updates with the transactions that produced them.
	mu         sync.RWMutex
	db         *bbolt.DB
	cache      Cache
	compressor *compression.Compressor
	log        *slog.Logger
}

var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the database at dbPath. The parent
// directory is created if it does not exist.
func OpenBoltStore(dbPath string, opts Options) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}

	compressor, err := compression.NewCompressor(opts.CompressionLevel, opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("store: create compressor: %w", err)
	}

	timeout := opts.OpenTimeout
	if timeout <= 0 {
		timeout = defaultOpenTimeout
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		_ = compressor.Close()
		if errors.Is(err, bolterrors.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s", ErrInUse, dbPath)
		}
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &BoltStore{
		db:         db,
		cache:      NewLRUCache(opts.CacheSize),
		compressor: compressor,
		log:        logger.With("component", "store"),
	}, nil
}

func (s *BoltStore) Close() error {
	s.cache.Purge()
	_ = s.compressor.Close()
	return s.db.Close()
}

func (s *BoltStore) ListSites(ctx context.Context) ([]string, error) {
	names := []string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: list sites: %w", err)
	}
	return names, nil
}

func (s *BoltStore) CreateSite(ctx context.Context, rec *site.Site) error {
	if err := validName(rec); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(rec.Name)) != nil {
			return fmt.Errorf("%w: %s", site.ErrExists, rec.Name)
		}
		b, err := tx.CreateBucket([]byte(rec.Name))
		if err != nil {
			return fmt.Errorf("store: create bucket %q: %w", rec.Name, err)
		}
		if _, err := b.CreateBucket(bucketFiles); err != nil {
			return fmt.Errorf("store: create files bucket: %w", err)
		}
		return putRecord(b, rec)
	})
	if err == nil {
		s.log.Debug("site created", "site", rec.Name)
	}
	return err
}

func (s *BoltStore) GetSite(ctx context.Context, name string) (*site.Site, error) {
	var rec *site.Site
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return fmt.Errorf("%w: no site with name %q", site.ErrNotFound, name)
		}
		data := b.Get(keySite)
		if data == nil {
			return fmt.Errorf("%w: no site record for %q", site.ErrNotFound, name)
		}
		rec = &site.Site{}
		if err := json.Unmarshal(data, rec); err != nil {
			return fmt.Errorf("store: decode site %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *BoltStore) PutSite(ctx context.Context, rec *site.Site) error {
	if err := validName(rec); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := siteBucket(tx, rec.Name)
		if err != nil {
			return err
		}
		return putRecord(b, rec)
	})
}

func (s *BoltStore) PutFile(ctx context.Context, rec *site.Site, digest string, body []byte, drop []string) error {
	if err := validName(rec); err != nil {
		return err
	}
	if digest == "" {
		return fmt.Errorf("%w: empty digest", site.ErrInvalid)
	}

	frame := s.compressor.Compress(body)

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := siteBucket(tx, rec.Name)
		if err != nil {
			return err
		}
		files := b.Bucket(bucketFiles)
		for _, d := range drop {
			if d == digest {
				continue
			}
			if err := files.Delete([]byte(d)); err != nil {
				return fmt.Errorf("store: delete file %s: %w", d, err)
			}
		}
		if err := files.Put([]byte(digest), frame); err != nil {
			return fmt.Errorf("store: put file %s: %w", digest, err)
		}
		return putRecord(b, rec)
	})
	if err != nil {
		return err
	}

	for _, d := range drop {
		s.cache.Remove(cacheKey(rec.Name, d))
	}
	s.cache.Add(cacheKey(rec.Name, digest), body)
	s.log.Debug("file stored", "site", rec.Name, "digest", digest,
		"size", len(body), "stored", len(frame), "dropped", len(drop))
	return nil
}

func (s *BoltStore) GetFile(ctx context.Context, name, digest string) ([]byte, error) {
	key := cacheKey(name, digest)
	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}

	// Held until the body is cached so a concurrent PutFile cannot drop it
	// in between.
	s.mu.RLock()
	defer s.mu.RUnlock()

	var frame []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return fmt.Errorf("%w: no site with name %q", site.ErrNotFound, name)
		}
		files := b.Bucket(bucketFiles)
		var v []byte
		if files != nil && digest != "" {
			v = files.Get([]byte(digest))
		}
		if v == nil {
			return fmt.Errorf("%w: no file with digest %s in site %s", site.ErrNotFound, digest, name)
		}
		// bbolt memory is only valid inside the transaction.
		frame = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	data, err := s.compressor.Decompress(frame)
	if err != nil {
		return nil, fmt.Errorf("store: read file %s: %w", digest, err)
	}
	s.cache.Add(key, data)
	return data, nil
}

func siteBucket(tx *bbolt.Tx, name string) (*bbolt.Bucket, error) {
	b, err := tx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, fmt.Errorf("store: create bucket %q: %w", name, err)
	}
	if _, err := b.CreateBucketIfNotExists(bucketFiles); err != nil {
		return nil, fmt.Errorf("store: create files bucket: %w", err)
	}
	return b, nil
}

func putRecord(b *bbolt.Bucket, rec *site.Site) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: encode site %q: %w", rec.Name, err)
	}
	if err := b.Put(keySite, data); err != nil {
		return fmt.Errorf("store: put site %q: %w", rec.Name, err)
	}
	return nil
}

func validName(rec *site.Site) error {
	if rec == nil || rec.Name == "" {
		return fmt.Errorf("%w: site name is required", site.ErrInvalid)
	}
	return nil
}
