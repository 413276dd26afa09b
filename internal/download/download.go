// Package download fetches survey data files to a local directory.
package download

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jtorrescarbajal/nhanes-diabetes-case-study/internal/utils"
)

// Status reports what One did for a single URL.
type Status int

const (
	StatusDownloaded Status = iota
	StatusSkipped
)

// Stats counts the outcomes of a batch download.
type Stats struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// One fetches a single file into destDir, deriving the local name from the
// final URL path segment. An already-present file is skipped without any
// network request, which makes re-runs idempotent. The fetched bytes are
// written verbatim; no integrity check is performed.
func One(client *http.Client, rawURL, destDir string) (Status, error) {
	if err := utils.EnsureDir(destDir); err != nil {
		return 0, fmt.Errorf("create download dir: %w", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("parse url %s: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return 0, fmt.Errorf("no file name in url %s", rawURL)
	}
	dest := filepath.Join(destDir, name)

	if _, err := os.Stat(dest); err == nil {
		return StatusSkipped, nil
	}

	resp, err := client.Get(rawURL)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch %s: unexpected status %s", name, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", name, err)
	}
	if err := utils.SafeWriteFile(dest, body); err != nil {
		return 0, fmt.Errorf("write %s: %w", name, err)
	}
	return StatusDownloaded, nil
}

// All downloads every URL sequentially. A failed fetch is logged and skipped;
// it never aborts the remaining downloads. The source data is acquired best
// effort, and the report reflects whatever arrived.
func All(client *http.Client, urls []string, destDir string, log *zap.Logger) Stats {
	var st Stats
	for _, u := range urls {
		status, err := One(client, u, destDir)
		if err != nil {
			st.Failed++
			log.Warn("download failed, skipping file", zap.String("url", u), zap.Error(err))
			continue
		}
		switch status {
		case StatusSkipped:
			st.Skipped++
			log.Debug("already downloaded", zap.String("url", u))
		default:
			st.Downloaded++
			log.Info("downloaded", zap.String("url", u))
		}
	}
	return st
}
