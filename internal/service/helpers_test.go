package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iamsyg/artisian-dashboard/internal/domain"
	"github.com/iamsyg/artisian-dashboard/internal/event"
	"github.com/iamsyg/artisian-dashboard/internal/gate"
	"github.com/iamsyg/artisian-dashboard/internal/genai"
	"github.com/iamsyg/artisian-dashboard/internal/ingest"
	"github.com/iamsyg/artisian-dashboard/internal/repository"
	"github.com/iamsyg/artisian-dashboard/internal/storage"
	"github.com/iamsyg/artisian-dashboard/internal/storage/memory"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
	pkgkafka "github.com/iamsyg/artisian-dashboard/pkg/kafka"
)

var (
	fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 48)...)
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func strPtr(s string) *string { return &s }

// --- Events ---

type recordingSink struct {
	mu     sync.Mutex
	events []*pkgkafka.Event
}

func (s *recordingSink) Publish(_ context.Context, _ string, ev *pkgkafka.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.EventType
	}
	return out
}

// --- Sellers ---

type fakeSellers struct {
	mu      sync.Mutex
	byUser  map[string]*domain.Seller
	deleted []string
}

var _ repository.SellerRepository = (*fakeSellers)(nil)

func newFakeSellers(sellers ...*domain.Seller) *fakeSellers {
	f := &fakeSellers{byUser: make(map[string]*domain.Seller)}
	for _, s := range sellers {
		f.byUser[s.UserID] = s
	}
	return f
}

func (f *fakeSellers) GetByUserID(_ context.Context, userID string) (*domain.Seller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byUser[userID]
	if !ok {
		return nil, apperrors.NotFound("seller", userID)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSellers) Register(_ context.Context, s *domain.Seller) (*domain.Seller, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byUser[s.UserID]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *s
	cp.IsSeller = false
	f.byUser[s.UserID] = &cp
	out := cp
	return &out, true, nil
}

func (f *fakeSellers) UpdateProfile(_ context.Context, id string, p domain.SellerProfile) (*domain.Seller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.byUser {
		if s.ID == id {
			s.DisplayName, s.Description, s.Location, s.Language = p.DisplayName, p.Description, p.Location, p.Language
			if p.ProfilePicture != nil {
				s.ProfilePicture = p.ProfilePicture
			}
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("seller", id)
}

func (f *fakeSellers) SetVerified(_ context.Context, userID string, verified bool) (*domain.Seller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byUser[userID]
	if !ok {
		return nil, apperrors.NotFound("seller", userID)
	}
	s.IsSeller = verified
	cp := *s
	return &cp, nil
}

func (f *fakeSellers) DeleteByUserID(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byUser, userID)
	f.deleted = append(f.deleted, userID)
	return nil
}

// --- Products ---

// fakeProducts mirrors the conditioned-write semantics of the postgres
// repository.
type fakeProducts struct {
	mu   sync.Mutex
	rows map[string]domain.Product
}

var _ repository.ProductRepository = (*fakeProducts)(nil)

func newFakeProducts(products ...domain.Product) *fakeProducts {
	f := &fakeProducts{rows: make(map[string]domain.Product)}
	for _, p := range products {
		f.rows[p.ID] = p
	}
	return f
}

func (f *fakeProducts) get(id string) (domain.Product, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	return p, ok
}

func (f *fakeProducts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeProducts) Create(_ context.Context, p *domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[p.ID] = *p
	return nil
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := f.get(id)
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return &p, nil
}

func (f *fakeProducts) List(_ context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []domain.Product
	for _, p := range f.rows {
		if filter.SellerID == nil || p.SellerID == *filter.SellerID {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * perPage
	if start > len(all) {
		start = len(all)
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return append([]domain.Product{}, all[start:end]...), len(all), nil
}

func (f *fakeProducts) ownedMiss(id string) error {
	if _, ok := f.rows[id]; ok {
		return apperrors.NotOwner("product", id)
	}
	return apperrors.NotFound("product", id)
}

func (f *fakeProducts) UpdateOwned(_ context.Context, p *domain.Product, imageURL *string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[p.ID]
	if !ok || row.SellerID != p.SellerID {
		return nil, f.ownedMiss(p.ID)
	}
	row.Name, row.Price, row.Description, row.Language = p.Name, p.Price, p.Description, p.Language
	row.UserID, row.SellerID = p.UserID, p.SellerID
	if imageURL != nil {
		row.ImageURL = imageURL
	}
	row.UpdatedAt = row.UpdatedAt.Add(time.Second)
	f.rows[p.ID] = row
	return &row, nil
}

func (f *fakeProducts) DeleteOwned(_ context.Context, id, sellerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.SellerID != sellerID {
		return f.ownedMiss(id)
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeProducts) ApplyAdOwned(_ context.Context, id, sellerID string, ad repository.AdUpdate) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.SellerID != sellerID {
		return nil, f.ownedMiss(id)
	}
	row.ImageURL = strPtr(ad.ImageURL)
	row.Description = ad.Description
	row.AIDescription = strPtr(ad.AIDescription)
	f.rows[id] = row
	return &row, nil
}

func (f *fakeProducts) SetAIDescription(_ context.Context, id, ai string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	row.AIDescription = strPtr(ai)
	f.rows[id] = row
	return &row, nil
}

// --- Storage ---

// switchBucket fails uploads while fail is set.
type switchBucket struct {
	storage.Bucket
	mu   sync.Mutex
	fail bool
}

func (b *switchBucket) setFail(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail = v
}

func (b *switchBucket) Upload(ctx context.Context, in *storage.UploadInput) (*storage.UploadResult, error) {
	b.mu.Lock()
	fail := b.fail
	b.mu.Unlock()
	if fail {
		return nil, errors.New("storage: connection refused")
	}
	return b.Bucket.Upload(ctx, in)
}

// --- AI ---

type fakeAI struct {
	mu           sync.Mutex
	description  string
	describeErr  error
	describes    int
	image        []byte
	generateErr  error
	generations  int
	prompts      []string
	block        chan struct{}
	entered      chan struct{}
	transcript   string
	transcribeFn func(audioURL, lang string)
	speechErr    error
}

func (f *fakeAI) Describe(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describes++
	if f.describeErr != nil {
		return "", f.describeErr
	}
	return f.description, nil
}

func (f *fakeAI) GenerateAdImage(ctx context.Context, prompt string) (*genai.Image, error) {
	f.mu.Lock()
	f.generations++
	f.prompts = append(f.prompts, prompt)
	block, entered, err, img := f.block, f.entered, f.generateErr, f.image
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, apperrors.GenerationFailed(ctx.Err())
		}
	}
	if err != nil {
		return nil, err
	}
	return &genai.Image{Data: img, ContentType: "image/png"}, nil
}

func (f *fakeAI) Transcribe(_ context.Context, audioURL, lang string) (string, error) {
	if f.transcribeFn != nil {
		f.transcribeFn(audioURL, lang)
	}
	if f.speechErr != nil {
		return "", f.speechErr
	}
	return f.transcript, nil
}

// --- Fixture ---

type fixture struct {
	sellers  *fakeSellers
	products *fakeProducts
	store    *memory.Store
	photos   *switchBucket
	sink     *recordingSink
	ai       *fakeAI
	checker  *gate.Checker
	images   *ingest.Ingestor
	producer *event.Producer
}

var (
	sellerS1 = &domain.Seller{ID: "seller-1", UserID: "user-1", IsSeller: true, DisplayName: "Asha Pottery"}
	sellerS2 = &domain.Seller{ID: "seller-2", UserID: "user-2", IsSeller: true, DisplayName: "Ravi Weaves"}
	sellerU  = &domain.Seller{ID: "seller-3", UserID: "user-3", IsSeller: false, DisplayName: "Unverified"}
)

func newFixture(t *testing.T, products ...domain.Product) *fixture {
	t.Helper()
	logger := newTestLogger()

	s1, s2, u := *sellerS1, *sellerS2, *sellerU
	f := &fixture{
		sellers:  newFakeSellers(&s1, &s2, &u),
		products: newFakeProducts(products...),
		store:    memory.New("http://localhost:8080"),
		sink:     &recordingSink{},
		ai:       &fakeAI{description: "A cobalt glazed vase", image: pngBytes, transcript: "handmade brass lamp"},
	}
	f.photos = &switchBucket{Bucket: f.store.Bucket(storage.BucketProductPhotos)}
	f.checker = gate.NewChecker(f.sellers, logger)
	f.images = ingest.New(f.photos, ingest.Image, 1<<20, logger)
	f.producer = event.NewProducer(f.sink, logger)
	return f
}

func (f *fixture) productService() *ProductService {
	svc := NewProductService(f.products, f.checker, f.images, f.producer, newTestLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func (f *fixture) object(t *testing.T, url string) []byte {
	t.Helper()
	const prefix = "http://localhost:8080/media/" + storage.BucketProductPhotos + "/"
	require.Greater(t, len(url), len(prefix))
	data, _, ok := f.store.Get(storage.BucketProductPhotos, url[len(prefix):])
	require.True(t, ok, "object %s not stored", url)
	return data
}

func ownedProduct(id string, seller *domain.Seller) domain.Product {
	return domain.Product{
		ID:            id,
		UserID:        seller.UserID,
		SellerID:      seller.ID,
		Name:          "Blue Vase",
		Description:   "Hand thrown stoneware",
		AIDescription: strPtr("A cobalt glazed vase"),
		ImageURL:      strPtr("http://localhost:8080/media/product-photos/products/original.png"),
		CreatedAt:     fixedNow.Add(-time.Hour),
		UpdatedAt:     fixedNow.Add(-time.Hour),
	}
}
