package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// Store wraps a read-only connection to a pre-built jlcparts SQLite
// database. It never writes; every method issues exactly one query.
type Store struct {
	db *sql.DB
}

// Open opens the catalog database at path in read-only mode.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("catalog database %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Single connection: the driver serializes access, and read-only
	// traffic gains nothing from a pool against a local file.
	db.SetMaxOpenConns(1)

	// Wait briefly if another process holds the file instead of failing.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Categories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, category, subcategory FROM categories")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Category, &c.Subcategory); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func (s *Store) CategoryByID(ctx context.Context, id int) (Category, error) {
	var c Category
	err := s.db.QueryRowContext(ctx,
		"SELECT id, category, subcategory FROM categories WHERE id = ?", id,
	).Scan(&c.ID, &c.Category, &c.Subcategory)
	if err == sql.ErrNoRows {
		return Category{}, ErrNotFound
	}
	return c, err
}

// SearchSubcategories returns categories whose subcategory name contains
// fragment. Matching follows the store's default collation.
func (s *Store) SearchSubcategories(ctx context.Context, fragment string) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, category, subcategory FROM categories WHERE subcategory LIKE ?",
		"%"+fragment+"%",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Category, &c.Subcategory); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func (s *Store) Manufacturers(ctx context.Context) ([]Manufacturer, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM manufacturers")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Manufacturer
	for rows.Next() {
		var m Manufacturer
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

func (s *Store) ManufacturerByID(ctx context.Context, id int) (Manufacturer, error) {
	var m Manufacturer
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM manufacturers WHERE id = ?", id,
	).Scan(&m.ID, &m.Name)
	if err == sql.ErrNoRows {
		return Manufacturer{}, ErrNotFound
	}
	return m, err
}

// SearchManufacturers returns manufacturers whose name contains fragment.
func (s *Store) SearchManufacturers(ctx context.Context, fragment string) ([]Manufacturer, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name FROM manufacturers WHERE name LIKE ?", "%"+fragment+"%",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Manufacturer
	for rows.Next() {
		var m Manufacturer
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// DatasheetURL returns the datasheet URL for a part. A missing row and a
// row with a NULL datasheet both report ErrNotFound.
func (s *Store) DatasheetURL(ctx context.Context, lcsc int) (string, error) {
	var url sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT datasheet FROM components WHERE lcsc = ?", lcsc,
	).Scan(&url)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if !url.Valid || url.String == "" {
		return "", ErrNotFound
	}
	return url.String, nil
}

// ComponentExtra returns the raw extra JSON document for a part.
func (s *Store) ComponentExtra(ctx context.Context, lcsc int) ([]byte, error) {
	var extra []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT extra FROM components WHERE lcsc = ?", lcsc,
	).Scan(&extra)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return extra, err
}

const componentColumns = "lcsc, category_id, manufacturer_id, mfr, basic, preferred, description, package, stock, price, extra"

// SearchComponents runs the compiled filter against the components table.
// Row order is whatever SQLite returns; no ORDER BY is imposed.
func (s *Store) SearchComponents(ctx context.Context, filter SearchFilter) ([]Component, error) {
	where, args := filter.Compile()
	query := "SELECT " + componentColumns + " FROM components WHERE " + where

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Component
	for rows.Next() {
		var c Component
		if err := rows.Scan(
			&c.LCSC, &c.CategoryID, &c.ManufacturerID, &c.MFR,
			&c.Basic, &c.Preferred, &c.Description, &c.Package,
			&c.Stock, &c.Price, &c.Extra,
		); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// Stats counts rows in each catalog table.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		query string
		dst   *int
	}{
		{"SELECT COUNT(*) FROM categories", &st.Categories},
		{"SELECT COUNT(*) FROM manufacturers", &st.Manufacturers},
		{"SELECT COUNT(*) FROM components", &st.Components},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return Stats{}, err
		}
	}
	return st, nil
}
