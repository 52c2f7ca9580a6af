package sitearchive

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type SiteConfig struct {
	// ContentPath is the directory holding files.zip, the sitemap and overrides/.
	ContentPath string
	// ArchivePath overrides ContentPath/files.zip.
	ArchivePath    string
	ArchiveHandles int
	// IndexBackend is BackendMemory (default) or BackendSQLite.
	IndexBackend string
	// IndexPath overrides the sitemap location. For the memory backend the
	// default is the first document found by DefaultSitemapPath; for SQLite
	// it is ContentPath/sitemap.db.
	IndexPath string
	// OverridesPath overrides ContentPath/overrides.
	OverridesPath string
	Debug         bool
}

// Site is a loaded archive plus sitemap, ready to serve.
type Site struct {
	cfg      SiteConfig
	archive  *ArchiveReader
	sitemap  Sitemap
	resolver *Resolver
}

func (s *Site) debugf(format string, args ...any) {
	if s == nil || !s.cfg.Debug {
		return
	}
	log.Printf(format, args...)
}

func (c SiteConfig) withDefaults() (SiteConfig, error) {
	if strings.TrimSpace(c.ContentPath) == "" {
		c.ContentPath = "./content"
	}
	if c.ArchivePath == "" {
		c.ArchivePath = filepath.Join(c.ContentPath, "files.zip")
	}
	if c.OverridesPath == "" {
		c.OverridesPath = filepath.Join(c.ContentPath, "overrides")
	}
	if c.ArchiveHandles <= 0 {
		c.ArchiveHandles = 1
	}
	if c.IndexBackend == "" {
		c.IndexBackend = BackendMemory
		if strings.HasSuffix(strings.ToLower(c.IndexPath), ".db") {
			c.IndexBackend = BackendSQLite
		}
	}
	switch c.IndexBackend {
	case BackendMemory:
		if c.IndexPath == "" {
			p, err := DefaultSitemapPath(c.ContentPath)
			if err != nil {
				return c, err
			}
			c.IndexPath = p
		}
	case BackendSQLite:
		if c.IndexPath == "" {
			c.IndexPath = filepath.Join(c.ContentPath, "sitemap.db")
		}
	default:
		return c, fmt.Errorf("unknown index backend %q", c.IndexBackend)
	}
	return c, nil
}

// Open loads the archive and the sitemap concurrently and returns once both
// are ready. If either fails, nothing stays open.
func Open(cfg SiteConfig) (*Site, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	var (
		wg         sync.WaitGroup
		archive    *ArchiveReader
		sitemap    Sitemap
		archiveErr error
		sitemapErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		start := time.Now()
		archive, archiveErr = OpenArchive(cfg.ArchivePath, cfg.ArchiveHandles)
		if archiveErr == nil {
			log.Printf("opened archive path=%q members=%d handles=%d elapsed=%s", cfg.ArchivePath, archive.Len(), cfg.ArchiveHandles, time.Since(start))
		}
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		sitemap, sitemapErr = openSitemap(cfg)
		if sitemapErr == nil {
			log.Printf("opened sitemap path=%q backend=%s%s elapsed=%s", cfg.IndexPath, cfg.IndexBackend, describeSitemap(sitemap), time.Since(start))
		}
	}()
	wg.Wait()

	if err := errors.Join(archiveErr, sitemapErr); err != nil {
		if archive != nil {
			_ = archive.Close()
		}
		if sitemap != nil {
			_ = sitemap.Close()
		}
		return nil, err
	}

	s := &Site{
		cfg:     cfg,
		archive: archive,
		sitemap: sitemap,
		resolver: &Resolver{
			Overrides: cfg.OverridesPath,
			Sitemap:   sitemap,
			Archive:   archive,
			Debug:     cfg.Debug,
		},
	}
	s.debugf("site ready content=%q overrides=%q", cfg.ContentPath, cfg.OverridesPath)
	return s, nil
}

func openSitemap(cfg SiteConfig) (Sitemap, error) {
	if cfg.IndexBackend == BackendSQLite {
		db, err := OpenDBSitemap(cfg.IndexPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	idx, err := LoadSitemapFile(cfg.IndexPath)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func describeSitemap(s Sitemap) string {
	switch v := s.(type) {
	case *SiteIndex:
		return fmt.Sprintf(" entries=%d strings=%d", v.Len(), v.Strings())
	case *DBSitemap:
		if n, err := v.Count(); err == nil {
			return fmt.Sprintf(" entries=%d", n)
		}
	}
	return ""
}

func (s *Site) Resolver() *Resolver {
	return s.resolver
}

func (s *Site) Handler() http.Handler {
	return &Handler{Resolver: s.resolver, Debug: s.cfg.Debug}
}

func (s *Site) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.archive != nil {
		errs = append(errs, s.archive.Close())
		s.archive = nil
	}
	if s.sitemap != nil {
		errs = append(errs, s.sitemap.Close())
		s.sitemap = nil
	}
	return errors.Join(errs...)
}
