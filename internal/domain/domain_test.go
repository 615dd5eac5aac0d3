package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr string
	}{
		{in: "499.00", want: "499"},
		{in: " 12.5 ", want: "12.5"},
		{in: "0", want: "0"},
		{in: "19.990", want: "19.99"},
		{in: "", wantErr: "required"},
		{in: "abc", wantErr: "must be a number"},
		{in: "-1", wantErr: "must not be negative"},
		{in: "1.999", wantErr: "at most 2 decimal places"},
		{in: "10000000000", wantErr: "must not exceed"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestProductFields_Validate(t *testing.T) {
	lang := "  "
	f := ProductFields{Name: "  Blue Vase ", Price: decimal.RequireFromString("499.00"), Language: &lang}
	require.NoError(t, f.Validate())
	assert.Equal(t, "Blue Vase", f.Name)
	assert.Nil(t, f.Language)

	f = ProductFields{Name: "", Price: decimal.Zero}
	assert.ErrorContains(t, f.Validate(), "name is required")

	f = ProductFields{Name: strings.Repeat("é", MaxProductNameLength+1), Price: decimal.Zero}
	assert.ErrorContains(t, f.Validate(), "at most 200")

	f = ProductFields{Name: strings.Repeat("é", MaxProductNameLength), Price: decimal.Zero}
	assert.NoError(t, f.Validate())

	f = ProductFields{Name: "Vase", Price: decimal.NewFromInt(-5)}
	assert.ErrorContains(t, f.Validate(), "negative")
}

func TestAdState_Next(t *testing.T) {
	tests := []struct {
		from       AdState
		ev         AdEvent
		hasPreview bool
		want       AdState
	}{
		{AdIdle, AdPreviewRequested, false, AdPreviewing},
		{AdPreviewing, AdGenerated, false, AdPreviewReady},
		{AdPreviewing, AdGenerationFailed, false, AdIdle},
		{AdPreviewing, AdGenerationFailed, true, AdPreviewReady},
		{AdPreviewReady, AdPreviewRequested, true, AdPreviewing},
		{AdPreviewReady, AdCommitRequested, true, AdCommitting},
		{AdPreviewReady, AdDiscarded, true, AdIdle},
		{AdCommitting, AdCommitted, true, AdIdle},
		{AdCommitting, AdCommitFailed, true, AdPreviewReady},
	}

	for _, tt := range tests {
		got, err := tt.from.Next(tt.ev, tt.hasPreview)
		require.NoError(t, err, "%s on %s", tt.ev, tt.from)
		assert.Equal(t, tt.want, got, "%s on %s", tt.ev, tt.from)
	}
}

func TestAdState_NextIllegal(t *testing.T) {
	illegal := []struct {
		from AdState
		ev   AdEvent
	}{
		{AdIdle, AdCommitRequested},
		{AdIdle, AdDiscarded},
		{AdPreviewing, AdPreviewRequested},
		{AdPreviewing, AdCommitRequested},
		{AdCommitting, AdPreviewRequested},
		{AdCommitting, AdDiscarded},
	}

	for _, tt := range illegal {
		got, err := tt.from.Next(tt.ev, true)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrIllegalTransition))
		assert.Equal(t, tt.from, got)
	}
}

func TestAdState_Busy(t *testing.T) {
	assert.True(t, AdPreviewing.Busy())
	assert.True(t, AdCommitting.Busy())
	assert.False(t, AdIdle.Busy())
	assert.False(t, AdPreviewReady.Busy())
}

func TestAdPreview_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &AdPreview{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, p.Expired(now))
	assert.True(t, p.Expired(now.Add(time.Minute)))
}

func TestMoney_JSONKeepsTwoDecimals(t *testing.T) {
	for in, want := range map[string]string{
		"499.00": `"499.00"`,
		"499":    `"499.00"`,
		"12.5":   `"12.50"`,
		"0":      `"0.00"`,
	} {
		out, err := json.Marshal(NewMoney(decimal.RequireFromString(in)))
		require.NoError(t, err)
		assert.Equal(t, want, string(out), in)
	}

	var back Money
	require.NoError(t, json.Unmarshal([]byte(`"499.00"`), &back))
	assert.True(t, back.Equal(decimal.RequireFromString("499")))

	out, err := json.Marshal(Product{ID: "p1", Price: NewMoney(decimal.RequireFromString("499.00"))})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"price":"499.00"`)
}

