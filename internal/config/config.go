package config

import (
	"os"
	"path/filepath"
)

// Default locations relative to the archive root.
const (
	ContentDir   = "content/pieces"
	StoreFile    = "public/embeddings/pieces-v1.json"
	CacheDir     = ".pieces/cache"
	MetadataFile = "embeddings.db"
)

// RootEnv overrides the archive root.
const RootEnv = "PIECES_ROOT"

// ResolveRoot picks the archive root: explicit flag, then PIECES_ROOT, then
// the configured root, then the current directory.
func ResolveRoot(flagValue string, cfg *GlobalConfig) (string, error) {
	root := flagValue
	if root == "" {
		root = os.Getenv(RootEnv)
	}
	if root == "" && cfg != nil {
		root = cfg.Root
	}
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		root = cwd
	}
	return filepath.Abs(ExpandPath(root))
}

// ContentPath returns the piece directory for a root.
func ContentPath(root string, cfg *GlobalConfig) string {
	if cfg != nil && cfg.ContentDir != "" {
		return resolve(root, cfg.ContentDir)
	}
	return filepath.Join(root, ContentDir)
}

// StorePath returns the embedding store file for a root.
func StorePath(root string, cfg *GlobalConfig) string {
	if cfg != nil && cfg.StorePath != "" {
		return resolve(root, cfg.StorePath)
	}
	return filepath.Join(root, StoreFile)
}

// MetadataDBPath returns the embedding metadata database for a root.
func MetadataDBPath(root string, cfg *GlobalConfig) string {
	if cfg != nil && cfg.MetadataDB != "" {
		return resolve(root, cfg.MetadataDB)
	}
	return filepath.Join(root, CacheDir, MetadataFile)
}

func resolve(root, path string) string {
	path = ExpandPath(path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
