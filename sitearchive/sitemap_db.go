package sitearchive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"gorm.io/gorm"
)

const exportBatchSize = 500

// DBSitemap is a Sitemap backed by a SQLite paths table. Lookups go through
// the database/sql connection pool, so concurrent requests need no extra
// locking here.
type DBSitemap struct {
	db *gorm.DB
}

var _ Sitemap = (*DBSitemap)(nil)

func OpenDBSitemap(path string) (*DBSitemap, error) {
	db, err := OpenQueryDB(path)
	if err != nil {
		return nil, err
	}
	s := &DBSitemap{db: db}
	if !db.Migrator().HasTable(&PathRow{}) {
		_ = s.Close()
		return nil, fmt.Errorf("sitemap db %s: missing table %q", path, PathRow{}.TableName())
	}
	return s, nil
}

func (s *DBSitemap) Lookup(ctx context.Context, url string) (SiteEntry, bool, error) {
	var row PathRow
	err := s.db.WithContext(ctx).Where("path = ?", url).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SiteEntry{}, false, nil
	}
	if err != nil {
		return SiteEntry{}, false, err
	}
	if err := (SourceEntry{Status: row.Status, Filename: row.Filename}).validate(); err != nil {
		return SiteEntry{}, false, fmt.Errorf("url %q: %w", url, err)
	}
	return row.entry(), true, nil
}

func (s *DBSitemap) Count() (int64, error) {
	var n int64
	err := s.db.Model(&PathRow{}).Count(&n).Error
	return n, err
}

func (s *DBSitemap) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	s.db = nil
	return err
}

// ExportSitemapDB writes idx into a new SQLite database at path. It refuses
// to touch an existing file, and removes the file again if the export fails.
func ExportSitemapDB(ctx context.Context, idx *SiteIndex, path string) (err error) {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("export sitemap db: %s already exists", path)
	}

	rows := make([]PathRow, 0, idx.Len())
	idx.Range(func(url string, e SiteEntry) bool {
		rows = append(rows, newPathRow(url, e))
		return true
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].Path < rows[j].Path })

	defer func() {
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	db, err := OpenDB(path)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, exportBatchSize).Error
	})
	if cerr := sqlDB.Close(); err == nil {
		err = cerr
	}
	return err
}
