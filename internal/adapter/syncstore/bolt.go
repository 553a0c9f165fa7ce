package syncstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"ragcloud/internal/domain"
)

var (
	bucketBlobs     = []byte("blobs")
	bucketArtifacts = []byte("artifacts")
)

// BoltSyncer stores artifacts in a single bbolt file.
type BoltSyncer struct {
	db *bbolt.DB
}

// ArtifactInfo describes a stored artifact.
type ArtifactInfo struct {
	Name      string    `json:"name"`
	Size      int       `json:"size"`
	SHA256    string    `json:"sha256"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewBoltSyncer(path string) (*BoltSyncer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create bolt directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketBlobs, bucketArtifacts} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltSyncer{db: db}, nil
}

func (s *BoltSyncer) Pull(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		// zero-length blobs may read back as nil, so existence comes from the info bucket
		if tx.Bucket(bucketArtifacts).Get([]byte(name)) == nil {
			return fmt.Errorf("%s: %w", name, domain.ErrNotFound)
		}
		v := tx.Bucket(bucketBlobs).Get([]byte(name))
		// bbolt values are only valid inside the transaction
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	return data, err
}

func (s *BoltSyncer) Push(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	sum := sha256.Sum256(data)
	info := ArtifactInfo{
		Name:      name,
		Size:      len(data),
		SHA256:    hex.EncodeToString(sum[:]),
		UpdatedAt: time.Now().UTC(),
	}
	infoData, err := json.Marshal(info)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketBlobs).Put([]byte(name), data); err != nil {
			return err
		}
		return tx.Bucket(bucketArtifacts).Put([]byte(name), infoData)
	})
}

func (s *BoltSyncer) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketBlobs).Delete([]byte(name)); err != nil {
			return err
		}
		return tx.Bucket(bucketArtifacts).Delete([]byte(name))
	})
}

// List returns the stored artifacts in key order.
func (s *BoltSyncer) List() ([]ArtifactInfo, error) {
	var infos []ArtifactInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketArtifacts).ForEach(func(k, v []byte) error {
			var info ArtifactInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return nil // Skip corrupted entries
			}
			infos = append(infos, info)
			return nil
		})
	})
	return infos, err
}

func (s *BoltSyncer) Close() error {
	return s.db.Close()
}
