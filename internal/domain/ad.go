package domain

import (
	"errors"
	"fmt"
	"time"
)

// AdState is the advertisement workflow state for one (subject, product) key.
type AdState string

const (
	AdIdle         AdState = "idle"
	AdPreviewing   AdState = "previewing"
	AdPreviewReady AdState = "preview_ready"
	AdCommitting   AdState = "committing"
)

// AdEvent drives AdState transitions.
type AdEvent string

const (
	AdPreviewRequested AdEvent = "preview_requested"
	AdGenerated        AdEvent = "generated"
	AdGenerationFailed AdEvent = "generation_failed"
	AdCommitRequested  AdEvent = "commit_requested"
	AdCommitted        AdEvent = "committed"
	AdCommitFailed     AdEvent = "commit_failed"
	AdDiscarded        AdEvent = "discarded"
)

// ErrIllegalTransition is returned for an event the current state does not accept.
var ErrIllegalTransition = errors.New("illegal ad workflow transition")

// Next returns the state reached from s on ev. hasPreview reports whether a
// stored preview exists for the key; it decides where a failed generation
// lands.
func (s AdState) Next(ev AdEvent, hasPreview bool) (AdState, error) {
	switch s {
	case AdIdle:
		if ev == AdPreviewRequested {
			return AdPreviewing, nil
		}
	case AdPreviewing:
		switch ev {
		case AdGenerated:
			return AdPreviewReady, nil
		case AdGenerationFailed:
			if hasPreview {
				return AdPreviewReady, nil
			}
			return AdIdle, nil
		}
	case AdPreviewReady:
		switch ev {
		case AdPreviewRequested:
			return AdPreviewing, nil
		case AdCommitRequested:
			return AdCommitting, nil
		case AdDiscarded:
			return AdIdle, nil
		}
	case AdCommitting:
		switch ev {
		case AdCommitted:
			return AdIdle, nil
		case AdCommitFailed:
			return AdPreviewReady, nil
		}
	}
	return s, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, ev, s)
}

// Busy reports whether an operation is in flight for the key.
func (s AdState) Busy() bool {
	return s == AdPreviewing || s == AdCommitting
}

// AdPreview is a generated advertisement image that has not been committed.
// It only ever lives in the ephemeral preview store. Description and
// AIDescription are the texts the image was generated from; commit writes
// them to the product together with the image.
type AdPreview struct {
	ID            string    `json:"id"`
	SubjectID     string    `json:"subject_id"`
	ProductID     string    `json:"product_id"`
	Image         []byte    `json:"-"`
	ContentType   string    `json:"content_type"`
	Description   string    `json:"description"`
	AIDescription string    `json:"ai_description"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Expired reports whether the preview is past its TTL at now.
func (p *AdPreview) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// AdStatus describes the workflow position of one (subject, product) key.
type AdStatus struct {
	ProductID string     `json:"product_id"`
	State     AdState    `json:"state"`
	Preview   *AdPreview `json:"preview,omitempty"`
}
