package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iamsyg/artisian-dashboard/internal/domain"
	"github.com/iamsyg/artisian-dashboard/internal/event"
	"github.com/iamsyg/artisian-dashboard/internal/gate"
	"github.com/iamsyg/artisian-dashboard/internal/genai"
	"github.com/iamsyg/artisian-dashboard/internal/ingest"
	previewmemory "github.com/iamsyg/artisian-dashboard/internal/preview/memory"
	"github.com/iamsyg/artisian-dashboard/internal/repository"
	"github.com/iamsyg/artisian-dashboard/internal/service"
	"github.com/iamsyg/artisian-dashboard/internal/storage"
	"github.com/iamsyg/artisian-dashboard/internal/storage/memory"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
	"github.com/iamsyg/artisian-dashboard/pkg/health"
	"github.com/iamsyg/artisian-dashboard/pkg/httputil"
)

// Ensure interfaces are satisfied at compile time.
var _ repository.ProductRepository = (*mockProductRepository)(nil)
var _ repository.SellerRepository = (*mockSellerRepository)(nil)

const (
	productID  = "7d1f3c2e-5b4a-4c8e-9f10-2a3b4c5d6e7f"
	mediaBase  = "http://localhost:8080"
	protectUID = "protected-uid"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 48)...)

// --- Mock ProductRepository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) UpdateOwned(ctx context.Context, product *domain.Product, imageURL *string) (*domain.Product, error) {
	args := m.Called(ctx, product, imageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) DeleteOwned(ctx context.Context, id, sellerID string) error {
	args := m.Called(ctx, id, sellerID)
	return args.Error(0)
}

func (m *mockProductRepository) ApplyAdOwned(ctx context.Context, id, sellerID string, ad repository.AdUpdate) (*domain.Product, error) {
	args := m.Called(ctx, id, sellerID, ad)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) SetAIDescription(ctx context.Context, id, aiDescription string) (*domain.Product, error) {
	args := m.Called(ctx, id, aiDescription)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

// --- Mock SellerRepository ---

type mockSellerRepository struct {
	mock.Mock
}

func (m *mockSellerRepository) GetByUserID(ctx context.Context, userID string) (*domain.Seller, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Seller), args.Error(1)
}

func (m *mockSellerRepository) Register(ctx context.Context, seller *domain.Seller) (*domain.Seller, bool, error) {
	args := m.Called(ctx, seller)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*domain.Seller), args.Bool(1), args.Error(2)
}

func (m *mockSellerRepository) UpdateProfile(ctx context.Context, id string, profile domain.SellerProfile) (*domain.Seller, error) {
	args := m.Called(ctx, id, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Seller), args.Error(1)
}

func (m *mockSellerRepository) SetVerified(ctx context.Context, userID string, verified bool) (*domain.Seller, error) {
	args := m.Called(ctx, userID, verified)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Seller), args.Error(1)
}

func (m *mockSellerRepository) DeleteByUserID(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Mock IdentityAdmin ---

type mockIdentityAdmin struct {
	mock.Mock
}

func (m *mockIdentityAdmin) DeleteUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Stubs ---

// stubVerifier accepts tokens of the form "token-<subject>".
type stubVerifier struct{}

func (stubVerifier) VerifySubject(_ context.Context, token string) (string, error) {
	if subject, ok := strings.CutPrefix(token, "token-"); ok && subject != "" {
		return subject, nil
	}
	return "", errors.New("bad token")
}

type stubAI struct {
	description string
	describeErr error
	image       []byte
	generateErr error
	transcript  string
}

func (s *stubAI) Describe(context.Context, string) (string, error) {
	return s.description, s.describeErr
}

func (s *stubAI) GenerateAdImage(context.Context, string) (*genai.Image, error) {
	if s.generateErr != nil {
		return nil, s.generateErr
	}
	return &genai.Image{Data: s.image, ContentType: "image/png"}, nil
}

func (s *stubAI) Transcribe(context.Context, string, string) (string, error) {
	return s.transcript, nil
}

// --- Test Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testEnv struct {
	products *mockProductRepository
	sellers  *mockSellerRepository
	identity *mockIdentityAdmin
	ai       *stubAI
	store    *memory.Store
	router   http.Handler
}

type envOption func(*RouterConfig)

func withRateLimit(rps float64, burst int) envOption {
	return func(c *RouterConfig) { c.AIRateLimitRPS, c.AIRateLimitBurst = rps, burst }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	logger := testLogger()

	env := &testEnv{
		products: new(mockProductRepository),
		sellers:  new(mockSellerRepository),
		identity: new(mockIdentityAdmin),
		ai:       &stubAI{description: "A cobalt glazed vase", image: pngBytes, transcript: "handmade brass lamp"},
		store:    memory.New(mediaBase),
	}

	checker := gate.NewChecker(env.sellers, logger)
	producer := event.NewNopProducer(logger)
	photos := ingest.New(env.store.Bucket(storage.BucketProductPhotos), ingest.Image, 1<<20, logger)
	pictures := ingest.New(env.store.Bucket(storage.BucketProfilePictures), ingest.Image, 1<<20, logger)
	audio := ingest.New(env.store.Bucket(storage.BucketAudioRecords), ingest.Audio, 1<<20, logger)

	products := service.NewProductService(env.products, checker, photos, producer, logger)
	svcs := Services{
		Products:       products,
		Catalog:        service.NewCatalogService(products, checker, logger),
		Enrichment:     service.NewEnrichmentService(env.products, checker, env.ai, producer, logger, false),
		Ads:            service.NewAdWorkflow(env.products, checker, previewmemory.New(), env.ai, photos, producer, 30*time.Minute, logger),
		Sellers:        service.NewSellerService(env.sellers, checker, pictures, producer, logger),
		Transcriptions: service.NewTranscriptionService(checker, audio, env.ai, logger),
		Accounts:       service.NewAccountService(env.identity, env.sellers, producer, logger, protectUID),
	}

	cfg := RouterConfig{
		Verifier:           stubVerifier{},
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		MaxImageBytes:      1 << 20,
		MaxAudioBytes:      1 << 20,
		AIRateLimitRPS:     100,
		AIRateLimitBurst:   100,
		Media:              env.store,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	env.router = NewRouter(t.Context(), svcs, cfg, health.NewHandler(), logger)
	return env
}

// seller registers a GetByUserID answer for the gate.
func (e *testEnv) seller(s *domain.Seller) {
	e.sellers.On("GetByUserID", mock.Anything, s.UserID).Return(s, nil).Maybe()
}

func (e *testEnv) noSeller(userID string) {
	e.sellers.On("GetByUserID", mock.Anything, userID).Return(nil, apperrors.NotFound("seller", userID)).Maybe()
}

func (e *testEnv) do(t *testing.T, method, path, subject string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if subject != "" {
		req.Header.Set("Authorization", "Bearer token-"+subject)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, path, subject string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	return e.do(t, method, path, subject, &buf, "application/json")
}

type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.Nil(t, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error, rec.Body.String())
	return env.Error.Code
}

// multipartBody builds a form with the given fields and an optional file.
func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, fileType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+fileName+`"`)
		h.Set("Content-Type", fileType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

var (
	sellerS1 = &domain.Seller{ID: "seller-1", UserID: "user-1", IsSeller: true, DisplayName: "Asha Pottery"}
	sellerS2 = &domain.Seller{ID: "seller-2", UserID: "user-2", IsSeller: true, DisplayName: "Ravi Weaves"}
	sellerU  = &domain.Seller{ID: "seller-3", UserID: "user-3", DisplayName: "Unverified"}
)

func strPtr(s string) *string { return &s }

func sampleProduct() *domain.Product {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Product{
		ID:            productID,
		UserID:        "user-1",
		SellerID:      "seller-1",
		Name:          "Blue Vase",
		Description:   "Hand thrown stoneware",
		AIDescription: strPtr("A cobalt glazed vase"),
		ImageURL:      strPtr(mediaBase + "/media/product-photos/products/original.png"),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
