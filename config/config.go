// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and validates chunkfile settings from a plain
// "key = value" file.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bitfsorg/chunkfile-go/storage"
)

// Config holds the settings for a chunkfile data directory.
type Config struct {
	DataDir   string // root of the bolt database and exported content
	LogLevel  string // debug, info, warn, error
	LogFile   string // empty means stdout
	ChunkSize int    // bytes per chunk when importing whole files
	DBName    string // bolt database file name inside DataDir
}

// DefaultDataDir returns ~/.chunkfile, or .chunkfile in the working
// directory when the home directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chunkfile"
	}
	return filepath.Join(home, ".chunkfile")
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:   DefaultDataDir(),
		LogLevel:  "info",
		ChunkSize: storage.DefaultChunkSize,
		DBName:    "chunkfile.db",
	}
}

// ConfigPath returns the config file location inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// DBPath returns the full path of the bolt database.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, c.DBName)
}

// ExportDir returns the directory used for exported file content.
func (c Config) ExportDir() string {
	return filepath.Join(c.DataDir, "export")
}

// LoadConfig reads a config file. Keys not present keep their defaults and
// unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: open: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, err := parseKeyValue(line)
		if err != nil {
			return Config{}, fmt.Errorf("%w: line %d", err, lineNo)
		}

		switch key {
		case "datadir":
			cfg.DataDir = value
		case "loglevel":
			cfg.LogLevel = value
		case "logfile":
			cfg.LogFile = value
		case "dbname":
			cfg.DBName = value
		case "chunksize":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Config{}, fmt.Errorf("%w: line %d: %q", ErrInvalidChunkSize, lineNo, value)
			}
			cfg.ChunkSize = n
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("config: read: %w", err)
	}
	return cfg, nil
}

// parseKeyValue splits a line on the first '='.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# chunkfile configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "dbname = %s\n", cfg.DBName)
	fmt.Fprintf(&b, "chunksize = %d\n", cfg.ChunkSize)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}
