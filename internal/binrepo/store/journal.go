package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/greeddj/binrepo-store/internal/binrepo/helpers"
	bolt "go.etcd.io/bbolt"
)

// PackageRecord describes one package produced by an import.
type PackageRecord struct {
	Name          string `json:"name" yaml:"name"`
	Version       string `json:"version" yaml:"version"`
	Archive       string `json:"archive" yaml:"archive"`
	ArchiveSHA256 string `json:"archive_sha256,omitempty" yaml:"archive_sha256,omitempty"`
	Created       bool   `json:"created" yaml:"created"`
}

// ImportRecord is one journal entry describing the outcome of a bundle import.
type ImportRecord struct {
	Seq        uint64          `json:"seq" yaml:"seq"`
	Bundle     string          `json:"bundle" yaml:"bundle"`
	Name       string          `json:"name,omitempty" yaml:"name,omitempty"`
	Version    string          `json:"version,omitempty" yaml:"version,omitempty"`
	Outcome    string          `json:"outcome" yaml:"outcome"`
	Target     string          `json:"target,omitempty" yaml:"target,omitempty"`
	Packages   []PackageRecord `json:"packages,omitempty" yaml:"packages,omitempty"`
	Error      string          `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time       `json:"finished_at" yaml:"finished_at"`
}

// Journal is an append-only import history kept in a Bolt database.
type Journal struct {
	db *bolt.DB
}

// OpenJournal opens (or creates) the journal database in the store root.
func OpenJournal(storeRoot string) (*Journal, error) {
	if storeRoot == "" {
		return nil, helpers.ErrStorePathEmpty
	}
	path := filepath.Join(storeRoot, helpers.StoreJournal)
	db, err := bolt.Open(path, helpers.FileMod, &bolt.Options{Timeout: helpers.StoreJournalOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(helpers.StoreBucketImports))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Record appends rec and assigns its sequence number.
func (j *Journal) Record(rec ImportRecord) error {
	if j == nil || j.db == nil {
		return helpers.ErrDbNil
	}
	return j.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(helpers.StoreBucketImports))
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		rec.Seq = seq
		encoded, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		return bucket.Put(seqKey(seq), encoded)
	})
}

// List returns up to limit most recent records, oldest first.
// A limit of zero or less returns the whole history.
func (j *Journal) List(limit int) ([]ImportRecord, error) {
	if j == nil || j.db == nil {
		return nil, helpers.ErrDbNil
	}
	var records []ImportRecord
	err := j.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(helpers.StoreBucketImports))
		if bucket == nil {
			return nil
		}
		cursor := bucket.Cursor()
		for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
			if limit > 0 && len(records) == limit {
				break
			}
			var rec ImportRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("invalid journal record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(records)
	return records, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
