package objectstore

import (
	"context"
	"sync"
)

// Mock is an in-memory Uploader for tests.
type Mock struct {
	mu sync.Mutex

	BaseURL        string
	UploadFileFunc func(ctx context.Context, path string, data []byte) (string, error)
	DeleteFileFunc func(ctx context.Context, path string) error

	UploadFileCalls []string
	DeleteFileCalls []string
	Objects         map[string][]byte
}

func NewMock() *Mock {
	return &Mock{BaseURL: "https://cdn.test", Objects: make(map[string][]byte)}
}

func (m *Mock) UploadFile(ctx context.Context, path string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UploadFileCalls = append(m.UploadFileCalls, path)
	if m.UploadFileFunc != nil {
		return m.UploadFileFunc(ctx, path, data)
	}
	m.Objects[path] = append([]byte(nil), data...)
	return m.BaseURL + "/" + path, nil
}

func (m *Mock) DeleteFile(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteFileCalls = append(m.DeleteFileCalls, path)
	if m.DeleteFileFunc != nil {
		return m.DeleteFileFunc(ctx, path)
	}
	delete(m.Objects, path)
	return nil
}

// Uploads returns the paths uploaded so far.
func (m *Mock) Uploads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.UploadFileCalls...)
}

var _ Uploader = (*Mock)(nil)
