// Package archive persists fetched pages to disk so a research run can be
// replayed, reprocessed, or audited without refetching anything.
//
// Each page is stored as two files named by the SHA-256 of its URL:
//
//	<hash>.html   raw HTML as fetched
//	<hash>.json   metadata sidecar (url, file name, fetch time, engine)
//
// ProcessAll reads every archived page back and writes the processed
// Markdown next to it under a separate directory.
package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/research-gpt/researchgpt/config"
	"github.com/research-gpt/researchgpt/models"
	"github.com/research-gpt/researchgpt/processor"
)

// Entry is the metadata sidecar written next to each archived HTML file.
type Entry struct {
	URL       string    `json:"url"`
	FileName  string    `json:"file_name"`
	FetchedAt time.Time `json:"fetched_at"`
	Engine    string    `json:"engine"`
	Title     string    `json:"title,omitempty"`
}

// Archive writes pages to and reads pages from a filesystem.
type Archive struct {
	fs  afero.Fs
	cfg config.ArchiveConfig
}

// New creates an Archive over the given filesystem. Pass afero.NewOsFs()
// for real disk storage or afero.NewMemMapFs() in tests.
func New(fs afero.Fs, cfg config.ArchiveConfig) *Archive {
	return &Archive{fs: fs, cfg: cfg}
}

// Key returns the archive file stem for a URL: hex SHA-256 of the URL.
// Deterministic, so refetching the same URL overwrites its prior snapshot.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Save writes the raw HTML of a fetched page plus its metadata sidecar.
// Returns the HTML file path within the archive.
func (a *Archive) Save(page *models.Page, rawHTML string) (string, error) {
	if err := a.fs.MkdirAll(a.cfg.HTMLDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	stem := Key(page.URL)
	htmlName := stem + ".html"
	htmlPath := filepath.Join(a.cfg.HTMLDir, htmlName)

	if err := afero.WriteFile(a.fs, htmlPath, []byte(rawHTML), 0o644); err != nil {
		return "", fmt.Errorf("write html: %w", err)
	}

	entry := Entry{
		URL:       page.URL,
		FileName:  htmlName,
		FetchedAt: page.FetchedAt,
		Engine:    page.Engine,
		Title:     page.Title,
	}
	meta, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	metaPath := filepath.Join(a.cfg.HTMLDir, stem+".json")
	if err := afero.WriteFile(a.fs, metaPath, meta, 0o644); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	slog.Debug("archived page", "url", page.URL, "file", htmlName, "engine", page.Engine)
	return htmlPath, nil
}

// Load returns the archived HTML and metadata for a URL, or an error if
// the URL was never archived.
func (a *Archive) Load(url string) (Entry, string, error) {
	stem := Key(url)

	entry, err := a.readEntry(filepath.Join(a.cfg.HTMLDir, stem+".json"))
	if err != nil {
		return Entry{}, "", err
	}

	html, err := afero.ReadFile(a.fs, filepath.Join(a.cfg.HTMLDir, stem+".html"))
	if err != nil {
		return Entry{}, "", fmt.Errorf("read html: %w", err)
	}

	return entry, string(html), nil
}

// LoadAll returns the metadata of every archived page, in directory order.
func (a *Archive) LoadAll() ([]Entry, error) {
	infos, err := afero.ReadDir(a.fs, a.cfg.HTMLDir)
	if err != nil {
		return nil, fmt.Errorf("read archive dir: %w", err)
	}

	var entries []Entry
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			continue
		}
		entry, err := a.readEntry(filepath.Join(a.cfg.HTMLDir, info.Name()))
		if err != nil {
			slog.Warn("skipping unreadable archive sidecar", "file", info.Name(), "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ProcessAll converts every archived HTML page to Markdown under the
// configured Markdown directory. Pages that fail to process are skipped
// with a warning; the count of written files is returned.
func (a *Archive) ProcessAll(proc *processor.Processor, opts processor.Options) (int, error) {
	entries, err := a.LoadAll()
	if err != nil {
		return 0, err
	}

	if err := a.fs.MkdirAll(a.cfg.MarkdownDir, 0o755); err != nil {
		return 0, fmt.Errorf("create markdown dir: %w", err)
	}

	written := 0
	for _, entry := range entries {
		_, html, err := a.Load(entry.URL)
		if err != nil {
			slog.Warn("skipping archived page", "url", entry.URL, "error", err)
			continue
		}

		doc, err := proc.Process(html, entry.URL, opts)
		if err != nil {
			slog.Warn("processing archived page failed", "url", entry.URL, "error", err)
			continue
		}

		mdPath := filepath.Join(a.cfg.MarkdownDir, Key(entry.URL)+".md")
		if err := afero.WriteFile(a.fs, mdPath, []byte(doc.Content), 0o644); err != nil {
			return written, fmt.Errorf("write markdown: %w", err)
		}
		written++
	}

	slog.Info("processed archive", "pages", len(entries), "written", written)
	return written, nil
}

func (a *Archive) readEntry(path string) (Entry, error) {
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return Entry{}, fmt.Errorf("read metadata: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("decode metadata: %w", err)
	}
	return entry, nil
}
