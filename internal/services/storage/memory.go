package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// memoryStorage — реализация Storage для dev-режима и тестов.
// Объекты живут в памяти процесса.
type memoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func newMemory() Storage {
	return &memoryStorage{objects: make(map[string][]byte)}
}

func (m *memoryStorage) Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[objectName] = buf.Bytes()
	m.mu.Unlock()
	return objectName, nil
}

func (m *memoryStorage) GetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[objectName]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("object %s not found", objectName)
	}
	return "https://storage.local/" + objectName, nil
}

var _ Storage = (*memoryStorage)(nil)
