package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

var _ BookStorage = (*boltBookStorage)(nil)

type boltBookStorage struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(config.BoltDB.FilePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database folder, %v", err)
	}
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BoltDB.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BoltDB.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltBookStorage provides an instance of bolt-based book storage.
func NewBoltBookStorage(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) BookStorage {
	return &boltBookStorage{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Close shuts down the bolt-based book storage.
func (bs *boltBookStorage) Close() error {
	return bs.client.Close()
}

// itob returns an 8-byte big endian representation of the id so
// that the bucket cursor iterates books in id order.
func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// Save inserts a new book with the next bucket sequence as id. A book with
// an id is written as is, whether it exists or not, since the mirror only
// replays records already persisted by the main storage.
func (bs *boltBookStorage) Save(_ context.Context, book Book) (Book, error) {
	err := bs.client.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bs.config.BucketName))
		if book.ID == 0 {
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			book.ID = int64(seq)
		}
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return err
		}
		return bucket.Put(itob(book.ID), bookBytes)
	})
	return book, err
}

// FindByID retrieves a book record based on its ID from boltdb store.
func (bs *boltBookStorage) FindByID(_ context.Context, id int64) (Book, error) {
	var book Book
	// initialize a readable transaction.
	tx, err := bs.client.Begin(false)
	if err != nil {
		return book, err
	}
	defer tx.Rollback()

	result := tx.Bucket([]byte(bs.config.BucketName)).Get(itob(id))
	if result == nil {
		return book, ErrBookNotFound
	}
	err = json.Unmarshal(result, &book)
	return book, err
}

// DeleteByID removes a book record based on its ID from boltdb store.
func (bs *boltBookStorage) DeleteByID(_ context.Context, id int64) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bs.config.BucketName)).Delete(itob(id))
	})
}

// FindAll retrieves a list of all books stored in the bolt database.
func (bs *boltBookStorage) FindAll(_ context.Context) ([]Book, error) {
	return bs.scan(func(Book) bool { return true })
}

// FindByName walks the bucket and keeps books with the exact given name.
func (bs *boltBookStorage) FindByName(_ context.Context, name string) ([]Book, error) {
	return bs.scan(func(b Book) bool { return b.Name == name })
}

func (bs *boltBookStorage) scan(keep func(Book) bool) ([]Book, error) {
	tx, err := bs.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Create a cursor on the books' bucket.
	c := tx.Bucket([]byte(bs.config.BucketName)).Cursor()

	books := []Book{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var book Book
		if err = json.Unmarshal(v, &book); err != nil {
			return nil, err
		}
		if keep(book) {
			books = append(books, book)
		}
	}
	return books, nil
}
