package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var _ BookStorage = (*sqliteBookStorage)(nil)

type sqliteBookStorage struct {
	logger  *zap.Logger
	db      *sql.DB
	timeout time.Duration
}

// GetSQLiteClient opens the database file, creating its folder if needed.
func GetSQLiteClient(config *Config) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(config.SQLite.FilePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database folder: %w", err)
	}
	db, err := sql.Open("sqlite", config.SQLite.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open the database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}
	return db, nil
}

// NewSQLiteBookStorage provides an instance of sqlite-based book storage.
func NewSQLiteBookStorage(logger *zap.Logger, db *sql.DB, timeout time.Duration) BookStorage {
	return &sqliteBookStorage{
		logger:  logger,
		db:      db,
		timeout: timeout,
	}
}

func (ss *sqliteBookStorage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, ss.timeout)
}

// Save inserts a new book record or updates the existing one.
func (ss *sqliteBookStorage) Save(ctx context.Context, book Book) (Book, error) {
	ctx, cancel := ss.withTimeout(ctx)
	defer cancel()

	if book.ID == 0 {
		res, err := ss.db.ExecContext(ctx, `INSERT INTO books (name, type, content) VALUES (?, ?, ?)`,
			book.Name, book.Type, book.Content)
		if err != nil {
			return book, err
		}
		book.ID, err = res.LastInsertId()
		return book, err
	}

	res, err := ss.db.ExecContext(ctx, `UPDATE books SET name = ?, type = ?, content = ? WHERE id = ?`,
		book.Name, book.Type, book.Content, book.ID)
	if err != nil {
		return book, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return book, err
	}
	if n == 0 {
		return book, ErrBookNotFound
	}
	return book, nil
}

// FindAll retrieves all books ordered by id.
func (ss *sqliteBookStorage) FindAll(ctx context.Context) ([]Book, error) {
	ctx, cancel := ss.withTimeout(ctx)
	defer cancel()
	rows, err := ss.db.QueryContext(ctx, `SELECT id, name, type, content FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanBooks(rows)
}

// FindByID retrieves a book record based on its ID.
func (ss *sqliteBookStorage) FindByID(ctx context.Context, id int64) (Book, error) {
	ctx, cancel := ss.withTimeout(ctx)
	defer cancel()
	var book Book
	err := ss.db.QueryRowContext(ctx, `SELECT id, name, type, content FROM books WHERE id = ?`, id).
		Scan(&book.ID, &book.Name, &book.Type, &book.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// FindByName retrieves books with the exact given name.
func (ss *sqliteBookStorage) FindByName(ctx context.Context, name string) ([]Book, error) {
	ctx, cancel := ss.withTimeout(ctx)
	defer cancel()
	rows, err := ss.db.QueryContext(ctx, `SELECT id, name, type, content FROM books WHERE name = ? ORDER BY id`, name)
	if err != nil {
		return nil, err
	}
	return scanBooks(rows)
}

// DeleteByID removes a book record based on its ID.
func (ss *sqliteBookStorage) DeleteByID(ctx context.Context, id int64) error {
	ctx, cancel := ss.withTimeout(ctx)
	defer cancel()
	_, err := ss.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	return err
}

func scanBooks(rows *sql.Rows) ([]Book, error) {
	defer rows.Close()
	books := []Book{}
	for rows.Next() {
		var book Book
		if err := rows.Scan(&book.ID, &book.Name, &book.Type, &book.Content); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}
