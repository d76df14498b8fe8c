// Package cache stores JSON-encoded values on disk keyed by a hash of the
// parameters that produced them.
package cache

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type CacheEntry[T any] struct {
	Data      T         `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
}

type CacheService[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T) error
	GenerateKey(params ...interface{}) string
}

type FileCache[T any] struct {
	cacheDir string
}

func NewFileCache[T any](dir string) *FileCache[T] {
	return &FileCache[T]{cacheDir: dir}
}

func (fc *FileCache[T]) Dir() string { return fc.cacheDir }

func (fc *FileCache[T]) GenerateKey(params ...interface{}) string {
	var keyData string
	for _, param := range params {
		keyData += fmt.Sprintf("%v_", param)
	}
	h := sha1.New()
	h.Write([]byte(keyData))
	return hex.EncodeToString(h.Sum(nil))
}

// Get misses on unreadable entries and on entries whose checksum does not
// match their data.
func (fc *FileCache[T]) Get(key string) (T, bool) {
	var zero T
	data, err := os.ReadFile(fc.path(key))
	if err != nil {
		return zero, false
	}

	var entry CacheEntry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		return zero, false
	}
	sum, err := fc.checksum(entry.Data)
	if err != nil || entry.Checksum != sum {
		return zero, false
	}
	return entry.Data, true
}

// Set writes through a temp file so readers never see a partial entry.
func (fc *FileCache[T]) Set(key string, data T) error {
	if err := os.MkdirAll(fc.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	sum, err := fc.checksum(data)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	jsonData, err := json.Marshal(CacheEntry[T]{Data: data, CreatedAt: time.Now(), Checksum: sum})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	cacheFile := fc.path(key)
	tmpFile := cacheFile + ".tmp"
	if err := os.WriteFile(tmpFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := os.Rename(tmpFile, cacheFile); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}
	return nil
}

func (fc *FileCache[T]) path(key string) string {
	return filepath.Join(fc.cacheDir, key+".json")
}

func (fc *FileCache[T]) checksum(data T) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	hash := md5.Sum(jsonData)
	return hex.EncodeToString(hash[:]), nil
}
