package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"static-archive/sitearchive"
)

const (
	defaultContentPath = "./content"
	defaultListenAddr  = "127.0.0.1:3030"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var configPath string
	var contentPath string
	var listenAddr string
	var indexBackend string
	var indexPath string
	var archivePath string
	var archiveHandles int
	var overridesPath string
	var debug bool
	var exportDB string
	var check bool

	flags := pflag.NewFlagSet("static-archive", pflag.ExitOnError)
	flags.StringVar(&configPath, "config", "", "YAML config file path.")
	flags.StringVar(&contentPath, "content", "", "Content root (overrides config.content_path and $CONTENT_PATH).")
	flags.StringVar(&listenAddr, "listen", defaultListenAddr, "HTTP listen address.")
	flags.StringVar(&indexBackend, "index-backend", "", "Sitemap backend: memory or sqlite.")
	flags.StringVar(&indexPath, "index", "", "Sitemap document or database path.")
	flags.StringVar(&archivePath, "archive", "", "Archive path (default <content>/files.zip).")
	flags.IntVar(&archiveHandles, "archive-handles", 1, "Independent archive readers; 1 serializes all extractions.")
	flags.StringVar(&overridesPath, "overrides", "", "Overrides directory (default <content>/overrides).")
	flags.BoolVar(&debug, "debug", false, "Enable debug logs.")
	flags.StringVar(&exportDB, "export-db", "", "Load the sitemap document, write it to this new SQLite file and exit.")
	flags.BoolVar(&check, "check", false, "Load archive and sitemap, report, and exit.")
	_ = flags.Parse(os.Args[1:])

	fileCfg := &sitearchive.FileConfig{}
	if configPath != "" {
		cfg, err := sitearchive.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		fileCfg = cfg
	}

	// Precedence: flag, then $CONTENT_PATH, then config file, then default.
	finalContent := fileCfg.ContentPath
	if env := strings.TrimSpace(os.Getenv("CONTENT_PATH")); env != "" {
		finalContent = env
	}
	if flags.Changed("content") {
		finalContent = contentPath
	}
	if finalContent == "" {
		finalContent = defaultContentPath
	}

	finalListen := fileCfg.ListenAddr
	if finalListen == "" {
		finalListen = defaultListenAddr
	}
	if flags.Changed("listen") {
		finalListen = listenAddr
	}

	finalBackend := fileCfg.Index.Backend
	if flags.Changed("index-backend") {
		finalBackend = strings.ToLower(strings.TrimSpace(indexBackend))
	}
	finalIndex := fileCfg.Index.Path
	if flags.Changed("index") {
		finalIndex = indexPath
	}

	finalArchive := fileCfg.Archive.Path
	if flags.Changed("archive") {
		finalArchive = archivePath
	}
	finalHandles := fileCfg.Archive.Handles
	if flags.Changed("archive-handles") {
		finalHandles = archiveHandles
	}

	finalOverrides := fileCfg.OverridesPath
	if flags.Changed("overrides") {
		finalOverrides = overridesPath
	}

	finalDebug := fileCfg.Debug
	if flags.Changed("debug") {
		finalDebug = debug
	}

	if exportDB != "" {
		if err := runExport(finalContent, finalIndex, exportDB); err != nil {
			log.Fatalf("export db: %v", err)
		}
		return
	}

	site, err := sitearchive.Open(sitearchive.SiteConfig{
		ContentPath:    finalContent,
		ArchivePath:    finalArchive,
		ArchiveHandles: finalHandles,
		IndexBackend:   finalBackend,
		IndexPath:      finalIndex,
		OverridesPath:  finalOverrides,
		Debug:          finalDebug,
	})
	if err != nil {
		log.Fatalf("open site: %v", err)
	}
	defer site.Close()

	if check {
		log.Printf("check ok content=%q", finalContent)
		return
	}

	if err := serve(site, finalListen); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

func runExport(contentPath string, indexPath string, dbPath string) error {
	if indexPath == "" {
		p, err := sitearchive.DefaultSitemapPath(contentPath)
		if err != nil {
			return err
		}
		indexPath = p
	}
	if strings.HasSuffix(strings.ToLower(indexPath), ".db") {
		return fmt.Errorf("source %s is already a database", indexPath)
	}
	idx, err := sitearchive.LoadSitemapFile(indexPath)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := sitearchive.ExportSitemapDB(context.Background(), idx, dbPath); err != nil {
		return err
	}
	log.Printf("exported sitemap src=%q dst=%q entries=%d elapsed=%s", indexPath, dbPath, idx.Len(), time.Since(start))
	return nil
}

func serve(site *sitearchive.Site, addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           site.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("ready to serve files addr=%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
