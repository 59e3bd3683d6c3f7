package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	// Import the SQLite driver.
	_ "github.com/mattn/go-sqlite3"
)

const (
	// pkgsTable holds one row per installed texbld build.
	// NOTE: Updating the structure here **will not** migrate the existing table!
	pkgsTable = `
	CREATE TABLE IF NOT EXISTS pkgs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP NOT NULL,
		used_at TIMESTAMP,
		current INTEGER NOT NULL DEFAULT 0,
		version TEXT NOT NULL
	);
	`

	insertPackageQuery = `INSERT INTO pkgs(version) VALUES (?)`

	getPackageQuery = `
	SELECT id, created_at, used_at, current, version
	FROM pkgs
	WHERE id = ?
	`

	nightliesQuery = `
	SELECT id, created_at, used_at, current, version
	FROM pkgs
	WHERE version = 'nightly'
	ORDER BY used_at DESC NULLS LAST, created_at DESC, id DESC
	LIMIT 10
	`

	stablesQuery = `
	SELECT id, created_at, used_at, current, version
	FROM pkgs
	WHERE version != 'nightly'
	ORDER BY used_at DESC NULLS LAST, created_at DESC, id DESC
	LIMIT 10
	`

	historyQuery = `
	SELECT id, created_at, used_at, current, version
	FROM pkgs
	WHERE used_at IS NOT NULL
	ORDER BY current DESC, used_at DESC, id DESC
	LIMIT 20
	`

	allPackagesQuery = `
	SELECT id, created_at, used_at, current, version
	FROM pkgs
	ORDER BY id ASC
	`

	removePackageQuery = `DELETE FROM pkgs WHERE id = ?`

	clearCurrentQuery = `
	UPDATE pkgs
	SET current = 0
	WHERE id != ?
	`

	setCurrentQuery = `
	UPDATE pkgs
	SET current = 1, used_at = CURRENT_TIMESTAMP
	WHERE id = ?
	`

	rollbackCandidateQuery = `
	SELECT id, created_at, used_at, current, version
	FROM pkgs
	WHERE used_at IS NOT NULL AND current = 0
	ORDER BY used_at DESC, id DESC
	LIMIT 1
	`
)

// VersionNightly is the version string denoting a nightly build; any other
// version string denotes a stable release.
const VersionNightly = "nightly"

type (
	// DB is the record store wrapping *sql.DB and operates on pkg records.
	DB struct {
		*sql.DB
	}

	// Package represents a pkg record in the database.
	Package struct {
		ID        int64
		CreatedAt time.Time
		UsedAt    *time.Time
		Current   bool
		Version   string
	}
)

// IsNightly returns true if the package is a nightly build.
func (p Package) IsNightly() bool { return p.Version == VersionNightly }

// Open opens a sqlite3 database, and creates it if necessary.
func Open(ctx context.Context, dbpath string) (*DB, error) {
	sdb, err := sql.Open("sqlite3", dbpath)
	if err != nil {
		return nil, fmt.Errorf("error opening the SQLite3 database at %q: %w", dbpath, err)
	}

	// Getting an error `database is locked` when data is being inserted in the
	// database at a fast rate. This will slow down read/write from the database
	// but at least none of them will fail due to connection issues.
	sdb.SetMaxOpenConns(1)

	db := &DB{DB: sdb}

	return db, db.createTables(ctx)
}

// InsertPackage creates a new pkg record with the given version and returns
// it. The record starts out inactive with a NULL used_at; version strings are
// stored verbatim, validation belongs to the installer.
func (db *DB) InsertPackage(ctx context.Context, version string) (Package, error) {
	res, err := db.ExecContext(ctx, insertPackageQuery, version)
	if err != nil {
		return Package{}, fmt.Errorf("error inserting the pkg record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Package{}, fmt.Errorf("error fetching the last insert id: %w", err)
	}

	return db.GetPackageByID(ctx, id)
}

// GetPackageByID returns the pkg record with the given id, or ErrNotFound.
func (db *DB) GetPackageByID(ctx context.Context, id int64) (Package, error) {
	return scanPackage(db.QueryRowContext(ctx, getPackageQuery, id))
}

// Nightlies returns up to 10 nightly records, most recently used first,
// falling back to most recently created, then highest id.
func (db *DB) Nightlies(ctx context.Context) ([]Package, error) {
	return db.queryPackages(ctx, nightliesQuery)
}

// Stables returns up to 10 stable records with the same ordering as
// Nightlies.
func (db *DB) Stables(ctx context.Context) ([]Package, error) {
	return db.queryPackages(ctx, stablesQuery)
}

// History returns up to 20 records that have been activated at least once;
// the active record sorts first, the rest by most recent activation.
func (db *DB) History(ctx context.Context) ([]Package, error) {
	return db.queryPackages(ctx, historyQuery)
}

// AllPackages returns every pkg record ordered by id.
func (db *DB) AllPackages(ctx context.Context) ([]Package, error) {
	return db.queryPackages(ctx, allPackagesQuery)
}

// RemovePackage deletes the pkg record with the given id, or returns
// ErrNotFound. It does not touch the filesystem; removing the package
// directory is the caller's responsibility.
func (db *DB) RemovePackage(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, removePackageQuery, id)
	if err != nil {
		return fmt.Errorf("error deleting the pkg record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error fetching the affected rows: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Activate marks the pkg record with the given id as current and stamps its
// used_at, clearing the flag on every other record. Both updates run in one
// transaction so at most one record is ever current, even if the process is
// killed in between.
func (db *DB) Activate(ctx context.Context, id int64) (Package, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Package{}, fmt.Errorf("error beginning a transaction: %w", err)
	}

	//nolint:errcheck
	defer tx.Rollback()

	pkg, err := activateInTx(ctx, tx, id)
	if err != nil {
		return Package{}, err
	}

	if err := tx.Commit(); err != nil {
		return Package{}, fmt.Errorf("error committing the transaction: %w", err)
	}

	return pkg, nil
}

// Rollback selects the most recently used record that is not current,
// activates it and returns it. It returns ErrNothingToRollback if no record
// other than the current one was ever activated.
func (db *DB) Rollback(ctx context.Context) (Package, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Package{}, fmt.Errorf("error beginning a transaction: %w", err)
	}

	//nolint:errcheck
	defer tx.Rollback()

	candidate, err := scanPackage(tx.QueryRowContext(ctx, rollbackCandidateQuery))
	if err != nil {
		if IsNotFoundError(err) {
			return Package{}, ErrNothingToRollback
		}

		return Package{}, err
	}

	pkg, err := activateInTx(ctx, tx, candidate.ID)
	if err != nil {
		return Package{}, err
	}

	if err := tx.Commit(); err != nil {
		return Package{}, fmt.Errorf("error committing the transaction: %w", err)
	}

	return pkg, nil
}

func activateInTx(ctx context.Context, tx *sql.Tx, id int64) (Package, error) {
	if _, err := scanPackage(tx.QueryRowContext(ctx, getPackageQuery, id)); err != nil {
		return Package{}, err
	}

	if _, err := tx.ExecContext(ctx, clearCurrentQuery, id); err != nil {
		return Package{}, fmt.Errorf("error clearing the current flag: %w", err)
	}

	if _, err := tx.ExecContext(ctx, setCurrentQuery, id); err != nil {
		return Package{}, fmt.Errorf("error setting the current flag: %w", err)
	}

	return scanPackage(tx.QueryRowContext(ctx, getPackageQuery, id))
}

func (db *DB) queryPackages(ctx context.Context, query string) ([]Package, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing the query: %w", err)
	}

	defer rows.Close()

	pkgs := make([]Package, 0)

	for rows.Next() {
		var pkg Package

		if err := rows.Scan(&pkg.ID, &pkg.CreatedAt, &pkg.UsedAt, &pkg.Current, &pkg.Version); err != nil {
			return nil, fmt.Errorf("error scanning the row into a Package: %w", err)
		}

		pkgs = append(pkgs, pkg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over the rows: %w", err)
	}

	return pkgs, nil
}

func scanPackage(row *sql.Row) (Package, error) {
	var pkg Package

	err := row.Scan(&pkg.ID, &pkg.CreatedAt, &pkg.UsedAt, &pkg.Current, &pkg.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pkg, ErrNotFound
		}

		return pkg, fmt.Errorf("error scanning the row into a Package: %w", err)
	}

	return pkg, nil
}

func (db *DB) createTables(ctx context.Context) error {
	zerolog.Ctx(ctx).Debug().Msg("creating the pkgs table")

	if _, err := db.ExecContext(ctx, pkgsTable); err != nil {
		return fmt.Errorf("error creating the pkgs table: %w", err)
	}

	return nil
}
