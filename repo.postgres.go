package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var _ BookStorage = (*postgresBookStorage)(nil)

type postgresBookStorage struct {
	logger  *zap.Logger
	db      *pgxpool.Pool
	timeout time.Duration
}

// GetPostgresClient provides a ready to use postgres connection pool.
func GetPostgresClient(config *Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(config.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if config.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = config.Postgres.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// test connection.
	ctx, cancel := context.WithTimeout(context.Background(), config.Postgres.PingTimeout)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("test connection failed: %w", err)
	}
	return pool, nil
}

// NewPostgresBookStorage provides an instance of postgres-based book storage.
func NewPostgresBookStorage(logger *zap.Logger, db *pgxpool.Pool, timeout time.Duration) BookStorage {
	return &postgresBookStorage{
		logger:  logger,
		db:      db,
		timeout: timeout,
	}
}

func (ps *postgresBookStorage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, ps.timeout)
}

// Save inserts a new book record or updates the existing one.
func (ps *postgresBookStorage) Save(ctx context.Context, book Book) (Book, error) {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()

	if book.ID == 0 {
		const query = `INSERT INTO books (name, type, content) VALUES ($1, $2, $3) RETURNING id`
		err := ps.db.QueryRow(ctx, query, book.Name, book.Type, book.Content).Scan(&book.ID)
		return book, err
	}

	const query = `UPDATE books SET name = $2, type = $3, content = $4 WHERE id = $1`
	tag, err := ps.db.Exec(ctx, query, book.ID, book.Name, book.Type, book.Content)
	if err != nil {
		return book, err
	}
	if tag.RowsAffected() == 0 {
		return book, ErrBookNotFound
	}
	return book, nil
}

// FindAll retrieves all books ordered by id.
func (ps *postgresBookStorage) FindAll(ctx context.Context) ([]Book, error) {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()
	rows, err := ps.db.Query(ctx, `SELECT id, name, type, content FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectBooks(rows)
}

// FindByID retrieves a book record based on its ID.
func (ps *postgresBookStorage) FindByID(ctx context.Context, id int64) (Book, error) {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()
	var book Book
	err := ps.db.QueryRow(ctx, `SELECT id, name, type, content FROM books WHERE id = $1`, id).
		Scan(&book.ID, &book.Name, &book.Type, &book.Content)
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// FindByName retrieves books with the exact given name.
func (ps *postgresBookStorage) FindByName(ctx context.Context, name string) ([]Book, error) {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()
	rows, err := ps.db.Query(ctx, `SELECT id, name, type, content FROM books WHERE name = $1 ORDER BY id`, name)
	if err != nil {
		return nil, err
	}
	return collectBooks(rows)
}

// DeleteByID removes a book record based on its ID.
func (ps *postgresBookStorage) DeleteByID(ctx context.Context, id int64) error {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()
	_, err := ps.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	return err
}

func collectBooks(rows pgx.Rows) ([]Book, error) {
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
