// Package pkg is a package that provides utilities for groundskeeper.
package pkg

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Journal is a generic append-only log of items of type T, persisted as a
// gob stream. One Journal owns one file for one run; ReplayJournal reads a
// finished file back.
type Journal[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	AppendBatch(items []T) error
	Range(f func(index uint64, item T) error) error
	Close() error
}

type journalImpl[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
}

// NewJournal creates a journal file at path, truncating any previous run.
func NewJournal[T any](path string) (Journal[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		slog.Error("failed to create journal directory", "path", path, "error", err)
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		slog.Error("failed to create journal file", "path", path, "error", err)
		return nil, fmt.Errorf("failed to create journal file: %w", err)
	}

	slog.Debug("created journal", "path", path)

	return &journalImpl[T]{
		path:    path,
		file:    file,
		encoder: gob.NewEncoder(file),
		length:  0,
	}, nil
}

// Append implements Journal.
func (j *journalImpl[T]) Append(item T) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.encoder.Encode(item); err != nil {
		slog.Error("failed to encode item", "path", j.path, "index", j.length, "error", err)
		return fmt.Errorf("failed to encode item: %w", err)
	}

	j.length++
	slog.Debug("appended item", "path", j.path, "index", j.length-1)

	return nil
}

// AppendBatch implements Journal.
func (j *journalImpl[T]) AppendBatch(items []T) error {
	for _, item := range items {
		if err := j.Append(item); err != nil {
			return err
		}
	}

	return nil
}

// Path implements Journal.
func (j *journalImpl[T]) Path() string {
	return j.path
}

// Len implements Journal.
func (j *journalImpl[T]) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.length
}

// Range implements Journal.
func (j *journalImpl[T]) Range(fn func(index uint64, item T) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.Open(j.path)
	if err != nil {
		slog.Error("failed to open journal for range", "path", j.path, "error", err)
		return fmt.Errorf("failed to open journal: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close journal", "path", j.path, "error", err)
		}
	}()

	decoder := gob.NewDecoder(file)

	var item T

	for i := range j.length {
		if err := decoder.Decode(&item); err != nil {
			slog.Error("failed to decode item during range", "path", j.path, "index", i, "error", err)
			return fmt.Errorf("failed to decode item at index %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			slog.Warn("range callback error", "path", j.path, "index", i, "error", err)
			return err
		}
	}

	return nil
}

// Close implements Journal.
func (j *journalImpl[T]) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file != nil {
		if err := j.file.Close(); err != nil {
			slog.Error("failed to close journal", "path", j.path, "error", err)
			return err
		}

		slog.Debug("closed journal", "path", j.path, "length", j.length)
		j.file = nil
	}

	return nil
}

// lazyJournal defers file creation to the first append, so a run that never
// journals anything leaves no file behind.
type lazyJournal[T any] struct {
	path string
	mu   sync.Mutex
	j    Journal[T]
}

// NewLazyJournal returns a journal whose file is created on first Append.
func NewLazyJournal[T any](path string) Journal[T] {
	return &lazyJournal[T]{path: path}
}

func (l *lazyJournal[T]) open() (Journal[T], error) {
	if l.j == nil {
		j, err := NewJournal[T](l.path)
		if err != nil {
			return nil, err
		}

		l.j = j
	}

	return l.j, nil
}

// Append implements Journal.
func (l *lazyJournal[T]) Append(item T) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	j, err := l.open()
	if err != nil {
		return err
	}

	return j.Append(item)
}

// AppendBatch implements Journal.
func (l *lazyJournal[T]) AppendBatch(items []T) error {
	for _, item := range items {
		if err := l.Append(item); err != nil {
			return err
		}
	}

	return nil
}

// Path implements Journal.
func (l *lazyJournal[T]) Path() string {
	return l.path
}

// Len implements Journal.
func (l *lazyJournal[T]) Len() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.j == nil {
		return 0
	}

	return l.j.Len()
}

// Range implements Journal.
func (l *lazyJournal[T]) Range(fn func(index uint64, item T) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.j == nil {
		return nil
	}

	return l.j.Range(fn)
}

// Close implements Journal. Closing a journal that never appended is a no-op.
func (l *lazyJournal[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.j == nil {
		return nil
	}

	return l.j.Close()
}

// ReplayJournal decodes every item from a finished journal file, in order.
func ReplayJournal[T any](path string, fn func(index uint64, item T) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := gob.NewDecoder(file)

	for i := uint64(0); ; i++ {
		var item T
		if err := decoder.Decode(&item); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("failed to decode item at index %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}
}
