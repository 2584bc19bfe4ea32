package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/drbridge/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketRequests = []byte("requests")
	bucketMeta     = []byte("meta")

	// keyNextID holds the length of the contiguous stored prefix
	keyNextID = []byte("next_id")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	dbPath := filepath.Join(dataDir, "drbridge.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRequests, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Upsert stores req, merging with the existing record, and advances the
// contiguous watermark when req fills the next gap
func (s *BoltStore) Upsert(req *types.DataRequest) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRequests)
		key := idKey(req.ID)

		var existing *types.DataRequest
		if data := b.Get(key); data != nil {
			existing = &types.DataRequest{}
			if err := json.Unmarshal(data, existing); err != nil {
				return fmt.Errorf("failed to decode request %d: %w", req.ID, err)
			}
		}

		merged := types.Merge(existing, req)
		merged.UpdatedAt = s.now().UTC()

		data, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		if err := b.Put(key, data); err != nil {
			return err
		}

		meta := tx.Bucket(bucketMeta)
		next := readUint64(meta.Get(keyNextID))
		if req.ID != next {
			return nil
		}
		for b.Get(idKey(next)) != nil {
			next++
		}
		return meta.Put(keyNextID, idKey(next))
	})
}

// LastKnownID returns the highest id of the stored contiguous prefix
func (s *BoltStore) LastKnownID() (uint64, bool, error) {
	var next uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		next = readUint64(tx.Bucket(bucketMeta).Get(keyNextID))
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	if next == 0 {
		return 0, false, nil
	}
	return next - 1, true, nil
}

func (s *BoltStore) GetRequest(id uint64) (*types.DataRequest, error) {
	var req types.DataRequest
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRequests).Get(idKey(id))
		if data == nil {
			return fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return json.Unmarshal(data, &req)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *BoltStore) ListRequests(state types.DrState) ([]*types.DataRequest, error) {
	var requests []*types.DataRequest
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRequests)
		return b.ForEach(func(k, v []byte) error {
			var req types.DataRequest
			if err := json.Unmarshal(v, &req); err != nil {
				return err
			}
			if state != "" && req.State != state {
				return nil
			}
			requests = append(requests, &req)
			return nil
		})
	})
	return requests, err
}

// stateOnly decodes just the state of a stored record
type stateOnly struct {
	State types.DrState `json:"state"`
}

func (s *BoltStore) CountByState() (map[types.DrState]int, error) {
	counts := make(map[types.DrState]int)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRequests).ForEach(func(k, v []byte) error {
			var rec stateOnly
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode request %d: %w", readUint64(k), err)
			}
			counts[rec.State]++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// idKey encodes id big-endian so bucket order is id order
func idKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

func readUint64(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
