package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketName = "receiptos"
	listKey    = "receipts"
)

// ErrNotFound is returned when no receipt has the requested id
var ErrNotFound = errors.New("receipt not found")

// errCorruptList marks a stored collection that no longer decodes
var errCorruptList = errors.New("stored receipts are unreadable")

// Store defines the local receipt collection used in demo mode
type Store interface {
	// List returns every receipt, newest first
	List() ([]Receipt, error)

	// Get retrieves a receipt by ID
	Get(id string) (Receipt, error)

	// Save adds a receipt to the front of the collection
	Save(receipt Receipt) error

	// Replace overwrites the whole collection
	Replace(receipts []Receipt) error

	// Delete removes a receipt; deleting an unknown id is not an error
	Delete(id string) error

	// Close releases the underlying file
	Close() error
}

// BoltStore implements Store with the whole collection held as one JSON array
// under a single key. Every mutation reads, modifies and rewrites that array
// inside one transaction.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the store at path
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// List returns all receipts
func (b *BoltStore) List() ([]Receipt, error) {
	var receipts []Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		receipts, err = readList(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// Get retrieves a receipt by ID
func (b *BoltStore) Get(id string) (Receipt, error) {
	receipts, err := b.List()
	if err != nil {
		return Receipt{}, err
	}
	for _, r := range receipts {
		if r.ID == id {
			return r, nil
		}
	}
	return Receipt{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Save prepends a receipt to the collection
func (b *BoltStore) Save(receipt Receipt) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		receipts, err := readListForWrite(tx)
		if err != nil {
			return err
		}
		return writeList(tx, append([]Receipt{receipt}, receipts...))
	})
}

// Replace overwrites the collection after checking every receipt against the contract
func (b *BoltStore) Replace(receipts []Receipt) error {
	for _, r := range receipts {
		if err := Validate(r); err != nil {
			return fmt.Errorf("validating receipt %s: %w", r.ID, err)
		}
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return writeList(tx, receipts)
	})
}

// Delete removes a receipt from the collection
func (b *BoltStore) Delete(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		receipts, err := readListForWrite(tx)
		if err != nil {
			return err
		}
		kept := make([]Receipt, 0, len(receipts))
		for _, r := range receipts {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		return writeList(tx, kept)
	})
}

// Close closes the database
func (b *BoltStore) Close() error {
	return b.db.Close()
}

func readList(tx *bbolt.Tx) ([]Receipt, error) {
	receipts := make([]Receipt, 0)
	data := tx.Bucket([]byte(bucketName)).Get([]byte(listKey))
	if data == nil {
		return receipts, nil
	}
	if err := json.Unmarshal(data, &receipts); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptList, err)
	}
	return receipts, nil
}

// readListForWrite starts an unreadable collection over, so the write that
// follows replaces it with a valid one
func readListForWrite(tx *bbolt.Tx) ([]Receipt, error) {
	receipts, err := readList(tx)
	if errors.Is(err, errCorruptList) {
		slog.Warn("Resetting unreadable receipt store", "error", err)
		return []Receipt{}, nil
	}
	return receipts, err
}

func writeList(tx *bbolt.Tx, receipts []Receipt) error {
	if receipts == nil {
		receipts = []Receipt{}
	}
	data, err := json.Marshal(receipts)
	if err != nil {
		return fmt.Errorf("marshaling receipts: %w", err)
	}
	return tx.Bucket([]byte(bucketName)).Put([]byte(listKey), data)
}
