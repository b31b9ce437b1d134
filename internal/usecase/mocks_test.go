package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/productsheet/backend/internal/domain"
)

// scriptedReply is one canned Generate outcome
type scriptedReply struct {
	response string
	err      error
}

// MockModelClient is a mock implementation of domain.ModelClient that plays
// back scripted replies in order. The last reply repeats once the script runs out.
type MockModelClient struct {
	mu       sync.Mutex
	pingErrs []error
	replies  []scriptedReply
	pings    int
	requests []domain.ModelRequest
}

func NewMockModelClient(replies ...scriptedReply) *MockModelClient {
	return &MockModelClient{replies: replies}
}

func (m *MockModelClient) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pings++
	if len(m.pingErrs) == 0 {
		return nil
	}
	i := m.pings - 1
	if i >= len(m.pingErrs) {
		i = len(m.pingErrs) - 1
	}
	return m.pingErrs[i]
}

func (m *MockModelClient) Generate(ctx context.Context, req domain.ModelRequest) (*domain.ModelReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(m.replies) == 0 {
		return &domain.ModelReply{Response: "{}"}, nil
	}
	i := len(m.requests) - 1
	if i >= len(m.replies) {
		i = len(m.replies) - 1
	}
	r := m.replies[i]
	if r.err != nil {
		return nil, r.err
	}
	return &domain.ModelReply{Response: r.response}, nil
}

func (m *MockModelClient) generateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *MockModelClient) pingCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pings
}

func (m *MockModelClient) prompt(i int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[i].Prompt
}

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	data      map[string]domain.ProductRecord
	getError  error
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string]domain.ProductRecord)}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (domain.ProductRecord, error) {
	m.getCalled = true
	if m.getError != nil {
		return domain.ProductRecord{}, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return domain.ProductRecord{}, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value domain.ProductRecord, ttl time.Duration) error {
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// MockDiagnosticsStore records every saved diagnostic
type MockDiagnosticsStore struct {
	mu      sync.Mutex
	records []domain.DiagnosticRecord
	saveErr error
}

func (m *MockDiagnosticsStore) Save(ctx context.Context, record domain.DiagnosticRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.records = append(m.records, record)
	return fmt.Sprintf("seg%d_try%d.json", record.Metadata.Segment, record.Metadata.Attempt), nil
}
