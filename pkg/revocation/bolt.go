package revocation

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var boltBucket = []byte("revoked")

// Bolt persists revoked jtis in a local bbolt file so they survive restarts.
// Values are the token expiry as unix seconds, 0 when unknown.
type Bolt struct {
	db *bbolt.DB
}

func OpenBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

func encodeExpiry(t time.Time) []byte {
	buf := make([]byte, 8)
	if !t.IsZero() {
		binary.BigEndian.PutUint64(buf, uint64(t.Unix()))
	}
	return buf
}

func decodeExpiry(v []byte) time.Time {
	if len(v) != 8 {
		return time.Time{}
	}
	sec := binary.BigEndian.Uint64(v)
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0)
}

func (b *Bolt) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bk := tx.Bucket(boltBucket)
		if prev := bk.Get([]byte(jti)); prev != nil {
			expiresAt = mergeExpiry(decodeExpiry(prev), expiresAt)
		}
		return bk.Put([]byte(jti), encodeExpiry(expiresAt))
	})
}

func (b *Bolt) IsRevoked(_ context.Context, jti string) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(boltBucket).Get([]byte(jti)) != nil
		return nil
	})
	return found, err
}

func (b *Bolt) Prune(_ context.Context, now time.Time) (int, error) {
	n := 0
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bk := tx.Bucket(boltBucket)

		var stale [][]byte
		if err := bk.ForEach(func(k, v []byte) error {
			if expired(decodeExpiry(v), now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}

		for _, k := range stale {
			if err := bk.Delete(k); err != nil {
				return err
			}
		}
		n = len(stale)
		return nil
	})
	return n, err
}
