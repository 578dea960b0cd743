// Package hoststore reads tree records from the host application's
// database and keeps the export manifest next to them. PostgreSQL is
// reached through pgx, local stores through SQLite.
package hoststore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"arboretum/internal/models"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// ErrNotFound is returned when a tree is not published or does not exist.
var ErrNotFound = errors.New("tree not found")

// Options selects the database and which rows count as published trees.
type Options struct {
	Driver   string
	DSN      string
	PostType string
	Status   string
}

// Store is the host store of tree records.
type Store struct {
	db       *sql.DB
	driver   string
	postType string
	status   string
}

// Open connects to the database in opts and verifies the connection.
func Open(ctx context.Context, opts Options) (*Store, error) {
	switch opts.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported source driver %q", opts.Driver)
	}

	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", opts.Driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", opts.Driver, err)
	}

	logrus.Infof("Connected to %s host store", opts.Driver)
	return New(db, opts), nil
}

// New wraps an open database.
func New(db *sql.DB, opts Options) *Store {
	if opts.PostType == "" {
		opts.PostType = "arbre"
	}
	if opts.Status == "" {
		opts.Status = "publish"
	}
	return &Store{db: db, driver: opts.Driver, postType: opts.PostType, status: opts.Status}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// PublishedTrees returns every published tree in insertion order.
func (s *Store) PublishedTrees(ctx context.Context) ([]models.TreeRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(selectPublishedTrees), s.postType, s.status)
	if err != nil {
		return nil, fmt.Errorf("failed to query trees: %w", err)
	}
	defer rows.Close()

	var trees []models.TreeRecord
	for rows.Next() {
		tree, err := scanTree(rows)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trees: %w", err)
	}
	return trees, nil
}

// ModifiedSince returns published trees modified strictly after t. The
// comparison runs in Go so it behaves the same on every driver.
func (s *Store) ModifiedSince(ctx context.Context, t time.Time) ([]models.TreeRecord, error) {
	trees, err := s.PublishedTrees(ctx)
	if err != nil {
		return nil, err
	}
	var modified []models.TreeRecord
	for _, tree := range trees {
		if tree.LastModified.After(t) {
			modified = append(modified, tree)
		}
	}
	return modified, nil
}

// TreeByID returns one published tree.
func (s *Store) TreeByID(ctx context.Context, id int64) (models.TreeRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(selectTreeByID), s.postType, s.status, id)
	tree, err := scanTree(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TreeRecord{}, ErrNotFound
	}
	return tree, err
}

// Load reads the export manifest.
func (s *Store) Load(ctx context.Context) (models.ManifestState, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind(selectManifest), manifestKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ManifestState{}, nil
	}
	if err != nil {
		return models.ManifestState{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return models.ManifestState{}, fmt.Errorf("invalid manifest value %q: %w", value, err)
	}
	return models.At(t), nil
}

// Save overwrites the export manifest.
func (s *Store) Save(ctx context.Context, state models.ManifestState) error {
	if state.LastGeneration == nil {
		return errors.New("refusing to save an empty manifest")
	}
	value := state.LastGeneration.UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, s.rebind(upsertManifest), manifestKey, value); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	return nil
}

func (s *Store) String() string {
	return s.driver + ":export_manifest"
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTree(row scanner) (models.TreeRecord, error) {
	var (
		tree     models.TreeRecord
		modified dbTime
	)
	err := row.Scan(&tree.ID, &tree.Name, &tree.Label, &tree.Easting, &tree.Northing, &tree.DetailURL, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TreeRecord{}, err
	}
	if err != nil {
		return models.TreeRecord{}, fmt.Errorf("failed to scan tree: %w", err)
	}
	tree.LastModified = modified.Time
	return tree, nil
}

// rebind turns ? placeholders into $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
