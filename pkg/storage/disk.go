package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"audio-studio/pkg/models"

	"github.com/dgraph-io/badger/v3"
)

var (
	ErrAssetNotFound = errors.New("asset not found")
	ErrJobNotFound   = errors.New("job not found")
)

// DiskStore persists assets and job records. Asset bytes live under a
// separate key from their metadata so listings never load audio.
type DiskStore interface {
	StoreAsset(asset *models.Asset) error
	GetAsset(id string) (*models.Asset, error)
	DeleteAsset(id string) error
	StoreJob(job *models.Job) error
	GetJob(id string) (*models.Job, error)
	Close() error
}

type diskStore struct {
	db *badger.DB
}

func NewDiskStore(path string) (DiskStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	opts := badger.DefaultOptions(filepath.Join(path, "badger"))
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &diskStore{db: db}, nil
}

func assetKey(id string) []byte { return []byte("asset/" + id) }
func blobKey(id string) []byte { return []byte("blob/" + id) }
func jobKey(id string) []byte { return []byte("job/" + id) }

func (s *diskStore) StoreAsset(asset *models.Asset) error {
	meta := *asset
	meta.Data = nil

	data, err := json.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("failed to marshal asset: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(assetKey(asset.ID), data); err != nil {
			return err
		}
		return txn.Set(blobKey(asset.ID), asset.Data)
	})
}

func (s *diskStore) GetAsset(id string) (*models.Asset, error) {
	var asset models.Asset

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(assetKey(id))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &asset)
		}); err != nil {
			return err
		}

		blob, err := txn.Get(blobKey(id))
		if err != nil {
			return err
		}
		asset.Data, err = blob.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	return &asset, nil
}

func (s *diskStore) DeleteAsset(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(assetKey(id)); err != nil {
			return err
		}
		return txn.Delete(blobKey(id))
	})
}

func (s *diskStore) StoreJob(job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(jobKey(job.ID), data)
	})
}

func (s *diskStore) GetJob(id string) (*models.Job, error) {
	var job models.Job

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(jobKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

func (s *diskStore) Close() error {
	return s.db.Close()
}
