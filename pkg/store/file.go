// Copyright 2026 © The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bufio"
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jllopis/agora/pkg/errors"
)

const (
	recordExt  = ".json"
	segmentExt = ".log"
)

// FileStore persists records as JSON files and segments as JSON-lines
// files under a root directory. Puts go through a temp-file rename so a
// concurrent Get sees either the old record or the new one, never a
// partial write.
type FileStore struct {
	root string
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.New(errors.CodeStorage, "failed to create store root", err).
			WithContext("dir", dir)
	}
	return &FileStore{root: dir}, nil
}

func (f *FileStore) keyPath(key, ext string) (string, error) {
	parts, err := splitKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{f.root}, parts...)...) + ext, nil
}

// Put writes the record atomically via write-to-temp-then-rename.
func (f *FileStore) Put(_ context.Context, key string, value any) error {
	path, err := f.keyPath(key, recordExt)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errors.New(errors.CodeInternal, "failed to marshal record", err).
			WithContext("key", key)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(errors.CodeStorage, "failed to create record directory", err).
			WithContext("key", key)
	}
	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return errors.New(errors.CodeStorage, "failed to create temp record", err).
			WithContext("key", key)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.New(errors.CodeStorage, "failed to write record", err).
			WithContext("key", key)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.New(errors.CodeStorage, "failed to close temp record", err).
			WithContext("key", key)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.New(errors.CodeStorage, "failed to replace record", err).
			WithContext("key", key)
	}
	return nil
}

// Get reads the record under key into dest.
func (f *FileStore) Get(_ context.Context, key string, dest any) error {
	path, err := f.keyPath(key, recordExt)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return errors.New(errors.CodeStorage, "failed to read record", err).
			WithContext("key", key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.New(errors.CodeDecode, "failed to parse record", err).
			WithContext("key", key)
	}
	return nil
}

// AppendLine appends one JSON line to the segment file. The encoded
// line is written with a single Write call so concurrent appenders on
// an O_APPEND handle do not interleave bytes within a line.
func (f *FileStore) AppendLine(_ context.Context, segment string, value any) error {
	path, err := f.keyPath(segment, segmentExt)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return errors.New(errors.CodeInternal, "failed to marshal segment line", err).
			WithContext("segment", segment)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.New(errors.CodeStorage, "failed to create segment directory", err).
			WithContext("segment", segment)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return errors.New(errors.CodeStorage, "failed to open segment", err).
			WithContext("segment", segment)
	}
	defer file.Close()
	if _, err := file.Write(append(data, '\n')); err != nil {
		return errors.New(errors.CodeStorage, "failed to append segment line", err).
			WithContext("segment", segment)
	}
	return nil
}

// ReadLines returns the raw lines of a segment in append order.
func (f *FileStore) ReadLines(_ context.Context, segment string) ([][]byte, error) {
	path, err := f.keyPath(segment, segmentExt)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New(errors.CodeStorage, "failed to open segment", err).
			WithContext("segment", segment)
	}
	defer file.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, []byte(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(errors.CodeStorage, "failed to scan segment", err).
			WithContext("segment", segment)
	}
	return lines, nil
}

// List returns the record keys stored under prefix.
func (f *FileStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, recordExt) {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), recordExt)
		if prefix == "" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.CodeStorage, "failed to list records", err).
			WithContext("prefix", prefix)
	}
	return keys, nil
}

// Close is a no-op for the file backend.
func (f *FileStore) Close() error { return nil }
