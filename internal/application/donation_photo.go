package application

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/annadaan/annadaan-backend/internal/domain/entity"
	"github.com/annadaan/annadaan-backend/internal/domain/repository"
	"github.com/annadaan/annadaan-backend/pkg/apperrors"
	"github.com/annadaan/annadaan-backend/pkg/helpers"
)

// UploadPhoto attaches a food photo to an Available donation. Owner-only,
// same access rules as edits; the object lands in GCS and only the public
// URL is stored.
func (s *DonationService) UploadPhoto(ctx context.Context, donationID, actorID string, r io.Reader, filename, contentType string) (*entity.Donation, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return nil, apperrors.New(apperrors.CodeInternal, "photo storage not configured")
	}

	d, err := s.Donations.GetByID(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if d.DonorID != actorID {
		return nil, apperrors.New(apperrors.CodeForbidden, "only the owning donor can attach a photo")
	}
	if d.Status != entity.StatusAvailable {
		return nil, apperrors.New(apperrors.CodeInvalidState, "donation can no longer be edited")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("donations", donationID, uuid.NewString()+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return nil, err
	}

	available := entity.StatusAvailable
	updated, err := s.Donations.Update(ctx, donationID,
		repository.Predicate{Status: &available},
		repository.Patch{ImageURL: &url})
	if err != nil {
		if apperrors.Is(err, apperrors.CodePreconditionFailed) {
			return nil, apperrors.New(apperrors.CodeInvalidState, "donation can no longer be edited")
		}
		return nil, err
	}
	return updated, nil
}
