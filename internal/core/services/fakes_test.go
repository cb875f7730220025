package services

import (
	"context"
	"strings"
	"time"

	"github.com/cdm-corpus/corpus/internal/core/domain"
)

// fakeAdapter is an in-memory driven.StorageAdapter used across service
// tests, grounded on the same shape the teacher's mocks package uses
// (plain struct wrapping maps, no external test-double library needed).
type fakeAdapter struct {
	files    map[string][]byte
	children map[string][]string
	modTime  time.Time
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		files:    make(map[string][]byte),
		children: make(map[string][]string),
		modTime:  time.Unix(0, 0),
	}
}

func (f *fakeAdapter) put(path string, contents []byte) {
	f.files[path] = contents
	for {
		dir, name := splitDirName(path)
		f.addChild(dir, name)
		if dir == "/" {
			break
		}
		path = dir
	}
}

func (f *fakeAdapter) addChild(dir, name string) {
	for _, c := range f.children[dir] {
		if c == name {
			return
		}
	}
	f.children[dir] = append(f.children[dir], name)
}

func splitDirName(path string) (string, string) {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "/", path
	}
	dir := path[:idx]
	if dir == "" {
		dir = "/"
	}
	return dir, path[idx+1:]
}

func (f *fakeAdapter) Read(ctx context.Context, path string) ([]byte, error) {
	b, ok := f.files[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeAdapter) ComputeLastModifiedTime(ctx context.Context, path string) (time.Time, error) {
	return f.modTime, nil
}

func (f *fakeAdapter) ListChildren(ctx context.Context, path string) ([]string, error) {
	return f.children[path], nil
}
