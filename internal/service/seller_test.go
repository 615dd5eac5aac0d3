package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamsyg/artisian-dashboard/internal/event"
	"github.com/iamsyg/artisian-dashboard/internal/ingest"
	"github.com/iamsyg/artisian-dashboard/internal/storage"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
)

func (f *fixture) sellerService() *SellerService {
	pictures := ingest.New(f.store.Bucket(storage.BucketProfilePictures), ingest.Image, 1<<20, newTestLogger())
	svc := NewSellerService(f.sellers, f.checker, pictures, f.producer, newTestLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestRegisterSeller_CreatesUnverifiedOnce(t *testing.T) {
	f := newFixture(t)
	svc := f.sellerService()
	ctx := context.Background()

	seller, created, err := svc.Register(ctx, "user-9", &RegisterSellerInput{DisplayName: "  Clay Corner ", Location: "Jaipur"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, seller.IsSeller)
	assert.Equal(t, "Clay Corner", seller.DisplayName)
	assert.Equal(t, "user-9", seller.UserID)

	again, created, err := svc.Register(ctx, "user-9", &RegisterSellerInput{DisplayName: "Other"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, seller.ID, again.ID)
	assert.Equal(t, "Clay Corner", again.DisplayName)

	assert.Equal(t, []string{event.SellerRegistered}, f.sink.types())
}

func TestRegisterSeller_Errors(t *testing.T) {
	f := newFixture(t)
	svc := f.sellerService()

	_, _, err := svc.Register(context.Background(), "", &RegisterSellerInput{})
	assert.True(t, errors.Is(err, apperrors.ErrUnauthenticated))

	_, _, err = svc.Register(context.Background(), "user-9", &RegisterSellerInput{DisplayName: strings.Repeat("x", 101)})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestSellerMe(t *testing.T) {
	f := newFixture(t)
	svc := f.sellerService()

	me, err := svc.Me(context.Background(), "user-3")
	require.NoError(t, err)
	assert.Equal(t, "seller-3", me.ID)

	_, err = svc.Me(context.Background(), "user-404")
	assert.True(t, errors.Is(err, apperrors.ErrNotASeller))
}

func TestUpdateProfile_UnverifiedSellerWithPicture(t *testing.T) {
	f := newFixture(t)
	svc := f.sellerService()

	updated, err := svc.UpdateProfile(context.Background(), "user-3", &UpdateProfileInput{
		DisplayName: "Loom House",
		Description: "Hand woven rugs",
		Picture:     &Upload{Filename: "My Photo (1).PNG", ContentType: "image/png", Data: bytes.NewReader(pngBytes)},
	})
	require.NoError(t, err)

	assert.Equal(t, "Loom House", updated.DisplayName)
	require.NotNil(t, updated.ProfilePicture)
	assert.Equal(t,
		"http://localhost:8080/media/profile-pictures/users/user-3/1772366400000-my-photo-1.png",
		*updated.ProfilePicture)

	data, _, ok := f.store.Get(storage.BucketProfilePictures, "users/user-3/1772366400000-my-photo-1.png")
	require.True(t, ok)
	assert.Equal(t, pngBytes, data)
	assert.Equal(t, []string{event.SellerUpdated}, f.sink.types())
}

func TestUpdateProfile_KeepsPictureWhenNoneUploaded(t *testing.T) {
	f := newFixture(t)
	f.sellers.byUser["user-1"].ProfilePicture = strPtr("http://localhost:8080/media/profile-pictures/old.png")

	updated, err := f.sellerService().UpdateProfile(context.Background(), "user-1", &UpdateProfileInput{DisplayName: "Asha"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/profile-pictures/old.png", *updated.ProfilePicture)
}

func TestUpdateProfile_NotASeller(t *testing.T) {
	f := newFixture(t)

	_, err := f.sellerService().UpdateProfile(context.Background(), "user-404", &UpdateProfileInput{DisplayName: "x"})
	assert.True(t, errors.Is(err, apperrors.ErrNotASeller))
	assert.Empty(t, f.sink.types())
}

func TestSetVerified(t *testing.T) {
	f := newFixture(t)
	svc := f.sellerService()

	seller, err := svc.SetVerified(context.Background(), "user-3", true)
	require.NoError(t, err)
	assert.True(t, seller.IsSeller)

	// The gate sees the change on the next call.
	product, err := f.productService().Create(context.Background(), "user-3", &CreateProductInput{Fields: blueVase()})
	require.NoError(t, err)
	assert.Equal(t, "seller-3", product.SellerID)

	_, err = svc.SetVerified(context.Background(), "user-404", true)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = svc.SetVerified(context.Background(), " ", true)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}
