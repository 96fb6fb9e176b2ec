// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// siteNameOption is the site_options row holding the site title.
const siteNameOption = "blogname"

// SQLiteReader reads published products from a WooCommerce-shaped SQLite database.
type SQLiteReader struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) the catalog database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteReader, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Errorf("opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Errorf("pinging database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, errors.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, errors.Errorf("initializing schema: %w", err)
	}

	return &SQLiteReader{db: db}, nil
}

// DB exposes the underlying handle, mainly for seeding.
func (r *SQLiteReader) DB() *sql.DB {
	return r.db
}

func (r *SQLiteReader) Close() error {
	return r.db.Close()
}

func (r *SQLiteReader) Read(ctx context.Context) (Catalog, error) {
	logger := zerolog.Ctx(ctx)

	var cat Catalog
	err := r.db.QueryRowContext(ctx, `SELECT value FROM site_options WHERE name = ?`, siteNameOption).Scan(&cat.Site)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Catalog{}, errors.Errorf("reading site name: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, image_path
		FROM products
		WHERE status = 'publish'
		ORDER BY id`)
	if err != nil {
		return Catalog{}, errors.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	index := map[int64]int{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.PrimaryImage); err != nil {
			return Catalog{}, errors.Errorf("scanning product: %w", err)
		}
		index[rec.ID] = len(cat.Records)
		cat.Records = append(cat.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return Catalog{}, errors.Errorf("listing products: %w", err)
	}

	if err := r.readMeta(ctx, &cat, index); err != nil {
		return Catalog{}, err
	}
	if err := r.readVariants(ctx, &cat, index); err != nil {
		return Catalog{}, err
	}

	logger.Debug().Int("records", len(cat.Records)).Str("site", cat.Site).Msg("read sqlite catalog")

	return cat, nil
}

func (r *SQLiteReader) readMeta(ctx context.Context, cat *Catalog, index map[int64]int) error {
	rows, err := r.db.QueryContext(ctx, `SELECT product_id, meta_key, meta_value FROM product_meta ORDER BY id`)
	if err != nil {
		return errors.Errorf("listing product meta: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID  int64
			key, value string
		)
		if err := rows.Scan(&productID, &key, &value); err != nil {
			return errors.Errorf("scanning product meta: %w", err)
		}
		i, ok := index[productID]
		if !ok {
			continue
		}
		rec := &cat.Records[i]
		if rec.Meta == nil {
			rec.Meta = Meta{}
		}
		rec.Meta[key] = append(rec.Meta[key], value)
	}
	if err := rows.Err(); err != nil {
		return errors.Errorf("listing product meta: %w", err)
	}
	return nil
}

func (r *SQLiteReader) readVariants(ctx context.Context, cat *Catalog, index map[int64]int) error {
	rows, err := r.db.QueryContext(ctx, `SELECT product_id, variant_key, image_path, image_url FROM product_variants ORDER BY id`)
	if err != nil {
		return errors.Errorf("listing product variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID int64
			v         Variant
		)
		if err := rows.Scan(&productID, &v.Key, &v.Path, &v.URL); err != nil {
			return errors.Errorf("scanning product variant: %w", err)
		}
		i, ok := index[productID]
		if !ok {
			continue
		}
		cat.Records[i].Variants = append(cat.Records[i].Variants, v)
	}
	if err := rows.Err(); err != nil {
		return errors.Errorf("listing product variants: %w", err)
	}
	return nil
}
