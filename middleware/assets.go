package middleware

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Static files that carry a cache-busting version in their URL.
const (
	AppCSS = "css/app.css"
	AppJS  = "js/app.js"
)

var trackedAssets = []string{AppCSS, AppJS}

var (
	assetVersionsMu sync.RWMutex
	assetVersions   = map[string]string{}
)

// InitAssetVersions hashes the tracked files under dir once at startup.
// Missing files keep the default version.
func InitAssetVersions(dir string, logger *zap.Logger) {
	versions := make(map[string]string, len(trackedAssets))
	for _, name := range trackedAssets {
		hash, err := computeFileHash(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			if logger != nil {
				logger.Warn("asset not hashed", zap.String("asset", name), zap.Error(err))
			}
			continue
		}
		versions[name] = hash
	}

	assetVersionsMu.Lock()
	assetVersions = versions
	assetVersionsMu.Unlock()

	if logger != nil {
		logger.Info("asset versions initialized", zap.Int("assets", len(versions)))
	}
}

// computeFileHash returns the first 8 characters of the MD5 hash of a file
func computeFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil))[:8], nil
}

// AssetVersion returns the hash of a tracked file, or "1".
func AssetVersion(name string) string {
	assetVersionsMu.RLock()
	defer assetVersionsMu.RUnlock()
	if v, ok := assetVersions[name]; ok {
		return v
	}
	return "1"
}

// AssetURL is the versioned /static URL of a tracked file.
func AssetURL(name string) string {
	return "/static/" + name + "?v=" + AssetVersion(name)
}
