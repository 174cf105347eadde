package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zzenonn/partyphoto/internal/domain"
	perrors "github.com/zzenonn/partyphoto/internal/errors"
	"github.com/zzenonn/partyphoto/internal/mail"
)

// mockPhotoRepository is an in-memory photo store that pages the way the
// DynamoDB query does: newest photoKey first, exclusive cursor.
type mockPhotoRepository struct {
	mu         sync.Mutex
	records    map[string]map[string]domain.PhotoRecord
	createFunc func(ctx context.Context, photo domain.PhotoRecord) error
	listFunc   func(ctx context.Context, partyKey, cursor string, limit int32) (domain.PhotoPage, error)
	lastLimit  int32
}

func newMockPhotoRepository() *mockPhotoRepository {
	return &mockPhotoRepository{records: make(map[string]map[string]domain.PhotoRecord)}
}

func (m *mockPhotoRepository) seed(photos ...domain.PhotoRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range photos {
		if m.records[p.PartyKey] == nil {
			m.records[p.PartyKey] = make(map[string]domain.PhotoRecord)
		}
		m.records[p.PartyKey][p.PhotoKey] = p
	}
}

func (m *mockPhotoRepository) get(partyKey, photoKey string) (domain.PhotoRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[partyKey][photoKey]
	return p, ok
}

func (m *mockPhotoRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, party := range m.records {
		n += len(party)
	}
	return n
}

func (m *mockPhotoRepository) CreatePhoto(ctx context.Context, photo domain.PhotoRecord) (domain.PhotoRecord, error) {
	if m.createFunc != nil {
		if err := m.createFunc(ctx, photo); err != nil {
			return domain.PhotoRecord{}, err
		}
	}
	m.seed(photo)
	return photo, nil
}

func (m *mockPhotoRepository) ListPhotos(ctx context.Context, partyKey, cursor string, limit int32) (domain.PhotoPage, error) {
	m.mu.Lock()
	m.lastLimit = limit
	m.mu.Unlock()

	if m.listFunc != nil {
		return m.listFunc(ctx, partyKey, cursor, limit)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.records[partyKey]))
	for k := range m.records[partyKey] {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	start := 0
	if cursor != "" {
		start = len(keys)
		for i, k := range keys {
			if k < cursor {
				start = i
				break
			}
		}
	}

	end := start + int(limit)
	if end > len(keys) {
		end = len(keys)
	}

	page := domain.PhotoPage{Records: make([]domain.PhotoRecord, 0, end-start)}
	for _, k := range keys[start:end] {
		page.Records = append(page.Records, m.records[partyKey][k])
	}
	if end < len(keys) {
		next := keys[end-1]
		page.NextCursor = &next
	}
	return page, nil
}

func (m *mockPhotoRepository) SoftDeletePhoto(ctx context.Context, partyKey, photoKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.records[partyKey][photoKey]; ok {
		p.Deleted = true
		m.records[partyKey][photoKey] = p
	}
	return nil
}

// mockSigner returns deterministic URLs and records the TTLs it was asked for.
type mockSigner struct {
	mu           sync.Mutex
	uploadFunc   func(ctx context.Context, key, contentType string) (string, error)
	downloadFunc func(ctx context.Context, key string) (string, error)
	uploadTTLs   []time.Duration
	downloadTTLs []time.Duration
}

func (m *mockSigner) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	m.uploadTTLs = append(m.uploadTTLs, ttl)
	m.mu.Unlock()
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, key, contentType)
	}
	return fmt.Sprintf("https://bucket.example/put/%s?ct=%s", key, contentType), nil
}

func (m *mockSigner) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	m.downloadTTLs = append(m.downloadTTLs, ttl)
	m.mu.Unlock()
	if m.downloadFunc != nil {
		return m.downloadFunc(ctx, key)
	}
	return "https://bucket.example/get/" + key, nil
}

// mockTokenRepository keeps tokens in memory and consumes them on redeem.
type mockTokenRepository struct {
	mu          sync.Mutex
	tokens      map[string]domain.LoginToken
	createErr   error
	consumeFunc func(ctx context.Context, token string, now time.Time) (domain.LoginToken, error)
}

func newMockTokenRepository() *mockTokenRepository {
	return &mockTokenRepository{tokens: make(map[string]domain.LoginToken)}
}

func (m *mockTokenRepository) CreateToken(ctx context.Context, token domain.LoginToken) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.Token] = token
	return nil
}

func (m *mockTokenRepository) ConsumeToken(ctx context.Context, token string, now time.Time) (domain.LoginToken, error) {
	if m.consumeFunc != nil {
		return m.consumeFunc(ctx, token, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return domain.LoginToken{}, perrors.ErrNotFound
	}
	delete(m.tokens, token)
	if t.Expired(now) {
		return domain.LoginToken{}, perrors.ErrNotFound
	}
	return t, nil
}

func (m *mockTokenRepository) only() (domain.LoginToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		return t, len(m.tokens) == 1
	}
	return domain.LoginToken{}, false
}

type mockPartyRepository struct {
	memberships map[string][]domain.PartyMembership
	err         error
}

func (m *mockPartyRepository) ListPartiesByEmail(ctx context.Context, email string) ([]domain.PartyMembership, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.memberships[email], nil
}

type mockMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *mockMailer) Send(ctx context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}
