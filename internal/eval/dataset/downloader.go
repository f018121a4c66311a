package dataset

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	// HFResolveURL resolves a file inside a HuggingFace dataset repo
	HFResolveURL = "https://huggingface.co/datasets/%s/resolve/main/%s"

	// DefaultCacheDir mirrors the cache layout of the Python datasets library
	DefaultCacheDir = "~/.cache/huggingface/datasets"
)

// DownloadConfig configures dataset downloading
type DownloadConfig struct {
	// Repo is the HuggingFace dataset repository holding the labeled
	// spine cases.
	Repo          string
	CacheDir      string
	ForceDownload bool
	Token         string // HuggingFace token for private datasets
}

// Downloader handles downloading and caching evaluation datasets from
// HuggingFace.
type Downloader struct {
	config DownloadConfig
}

// NewDownloader creates a new dataset downloader
func NewDownloader(config DownloadConfig) *Downloader {
	if config.CacheDir == "" {
		config.CacheDir = DefaultCacheDir
	}

	// Expand ~ to home directory
	if strings.HasPrefix(config.CacheDir, "~") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			config.CacheDir = filepath.Join(homeDir, config.CacheDir[1:])
		}
	}

	return &Downloader{
		config: config,
	}
}

// DownloadDataset downloads a dataset file from HuggingFace and returns
// the path to the cached copy.
func (d *Downloader) DownloadDataset(filename string) (string, error) {
	if d.config.Repo == "" {
		return "", fmt.Errorf("dataset repo not configured")
	}

	cacheDir := filepath.Join(d.config.CacheDir, d.config.Repo)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	cachedPath := filepath.Join(cacheDir, filename)

	if !d.config.ForceDownload {
		if _, err := os.Stat(cachedPath); err == nil {
			slog.Info("Using cached dataset", "path", cachedPath)
			return cachedPath, nil
		}
	}

	slog.Info("Downloading dataset from HuggingFace", "repo", d.config.Repo, "file", filename)

	url := fmt.Sprintf(HFResolveURL, d.config.Repo, filename)

	if err := d.downloadFile(url, cachedPath); err != nil {
		return "", fmt.Errorf("failed to download dataset: %w", err)
	}

	slog.Info("Dataset downloaded successfully", "path", cachedPath)
	return cachedPath, nil
}

// downloadFile downloads a file from a URL to a local path via a temp
// file, so an interrupted download never leaves a truncated cache entry.
func (d *Downloader) downloadFile(url, destPath string) error {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if d.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.config.Token)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	tempPath := destPath + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move file: %w", err)
	}

	return nil
}

// GetCachePath returns the path where a dataset file would be cached
func (d *Downloader) GetCachePath(filename string) string {
	return filepath.Join(d.config.CacheDir, d.config.Repo, filename)
}

// ClearCache removes all cached dataset files for the configured repo
func (d *Downloader) ClearCache() error {
	cacheDir := filepath.Join(d.config.CacheDir, d.config.Repo)
	slog.Info("Clearing cache", "path", cacheDir)
	return os.RemoveAll(cacheDir)
}

// LoadOrDownload loads a dataset from cache or downloads if not present
func LoadOrDownload(filename string, config DownloadConfig) (*Loader, error) {
	downloader := NewDownloader(config)

	datasetPath, err := downloader.DownloadDataset(filename)
	if err != nil {
		return nil, err
	}

	return NewLoader(datasetPath), nil
}
