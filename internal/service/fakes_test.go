package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bigkaa/profile-intake/internal/domain/model"
	"github.com/bigkaa/profile-intake/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- memStore: in-memory репозитории с транзакциями через снимок ---

type memStore struct {
	mu       sync.Mutex
	profiles map[string]model.Profile
	media    map[string][]model.MediaItem
	seq      int

	// Инъекция ошибок
	errMediaCreate error
	errApply       error
	errSetNotes    error
	errCommit      error

	// applied — вызовы ApplyEnrichment (для проверки гонок)
	applied []model.Enrichment
}

func newMemStore() *memStore {
	return &memStore{
		profiles: make(map[string]model.Profile),
		media:    make(map[string][]model.MediaItem),
	}
}

func (m *memStore) Repos() repository.Repos {
	return repository.Repos{Profiles: &memProfiles{m}, Media: &memMedia{m}}
}

// WithRepos откатывает все изменения fn при ошибке.
func (m *memStore) WithRepos(_ context.Context, fn func(repository.Repos) error) error {
	m.mu.Lock()
	profiles := make(map[string]model.Profile, len(m.profiles))
	for k, v := range m.profiles {
		profiles[k] = v
	}
	media := make(map[string][]model.MediaItem, len(m.media))
	for k, v := range m.media {
		media[k] = append([]model.MediaItem(nil), v...)
	}
	m.mu.Unlock()

	err := fn(m.Repos())
	if err == nil && m.errCommit != nil {
		err = m.errCommit
	}
	if err != nil {
		m.mu.Lock()
		m.profiles, m.media = profiles, media
		m.mu.Unlock()
	}
	return err
}

func (m *memStore) get(id string) (model.Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	return p, ok
}

func (m *memStore) mediaCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, items := range m.media {
		n += len(items)
	}
	return n
}

type memProfiles struct{ m *memStore }

func (r *memProfiles) Create(_ context.Context, p *model.Profile) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.profiles[p.ID]; ok {
		return repository.ErrConflict
	}
	r.m.seq++
	p.CreatedAt = time.Date(2026, 1, 1, 0, 0, r.m.seq, 0, time.UTC)
	stored := *p
	stored.Media = nil
	r.m.profiles[p.ID] = stored
	return nil
}

func (r *memProfiles) GetByID(_ context.Context, id string) (*model.Profile, error) {
	p, ok := r.m.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *memProfiles) List(_ context.Context) ([]*model.Profile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	result := make([]*model.Profile, 0, len(r.m.profiles))
	for _, p := range r.m.profiles {
		result = append(result, &p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *memProfiles) Update(_ context.Context, id string, e model.ProfileEdit) (*model.Profile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Name, p.Age, p.Height, p.Weight, p.Measurements, p.Notes = e.Name, e.Age, e.Height, e.Weight, e.Measurements, e.Notes
	p.About = coalesce(e.About, p.RawText)
	r.m.profiles[id] = p
	return &p, nil
}

func (r *memProfiles) ApplyEnrichment(_ context.Context, id string, e model.Enrichment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.errApply != nil {
		return r.m.errApply
	}
	p, ok := r.m.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Name, p.Age, p.Height, p.Weight, p.Measurements, p.Notes = e.Name, e.Age, e.Height, e.Weight, e.Measurements, e.Notes
	p.About = coalesce(e.About, p.RawText)
	r.m.profiles[id] = p
	r.m.applied = append(r.m.applied, e)
	return nil
}

func (r *memProfiles) SetNotes(_ context.Context, id, notes string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.errSetNotes != nil {
		return r.m.errSetNotes
	}
	p, ok := r.m.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Notes = &notes
	r.m.profiles[id] = p
	return nil
}

func (r *memProfiles) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.profiles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.m.profiles, id)
	delete(r.m.media, id) // ON DELETE CASCADE
	return nil
}

func coalesce(s *string, fallback string) *string {
	if s != nil {
		return s
	}
	return &fallback
}

type memMedia struct{ m *memStore }

func (r *memMedia) Create(_ context.Context, item *model.MediaItem) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.errMediaCreate != nil {
		return r.m.errMediaCreate
	}
	if _, ok := r.m.profiles[item.ProfileID]; !ok {
		return repository.ErrConflict
	}
	r.m.media[item.ProfileID] = append(r.m.media[item.ProfileID], *item)
	return nil
}

func (r *memMedia) ListByProfile(ctx context.Context, profileID string) ([]model.MediaItem, error) {
	grouped, err := r.ListByProfileIDs(ctx, []string{profileID})
	return grouped[profileID], err
}

func (r *memMedia) ListByProfileIDs(_ context.Context, ids []string) (map[string][]model.MediaItem, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	result := make(map[string][]model.MediaItem, len(ids))
	for _, id := range ids {
		if items := r.m.media[id]; len(items) > 0 {
			result[id] = append([]model.MediaItem(nil), items...)
		}
	}
	return result, nil
}

// --- memBlobs: хранилище медиафайлов в памяти ---

type memBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	seq       int
	failSave  int // номер вызова Save (с 1), который вернёт ошибку
	saves     int
	errDelete error
	deleted   []string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (b *memBlobs) Save(_ context.Context, r io.Reader, filename, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves++
	if b.failSave == b.saves {
		return "", errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.seq++
	locator := "uploads/media-" + strings.Repeat("x", b.seq) + "-" + filename
	b.objects[locator] = data
	return locator, nil
}

func (b *memBlobs) Delete(_ context.Context, locator string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, locator)
	if b.errDelete != nil {
		return b.errDelete
	}
	delete(b.objects, locator)
	return nil
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// --- Вспомогательные ---

// fileOf создаёт UploadFile с содержимым в памяти.
func fileOf(name, contentType, content string) UploadFile {
	return UploadFile{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(content))), nil
		},
	}
}

// enricherFunc — адаптер функции к Enricher.
type enricherFunc func(ctx context.Context, text string) model.Enrichment

func (f enricherFunc) Parse(ctx context.Context, text string) model.Enrichment { return f(ctx, text) }

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
