package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kvo5/marvel-madness/internal/identity"
	"github.com/kvo5/marvel-madness/internal/media"
	"github.com/kvo5/marvel-madness/internal/models"
	"github.com/kvo5/marvel-madness/internal/observability"
	"github.com/kvo5/marvel-madness/internal/repository"
)

const (
	msgProfileUpdateFailed = "Failed to update profile."
	msgAccountLocalFailed  = "Failed to delete user data from database. Clerk account deleted."
)

// ProfileService edits profiles and deletes accounts across the identity provider and the
// local store.
type ProfileService struct {
	users       repository.UserRepository
	identity    IdentityProvider
	uploader    media.Uploader
	revalidator Revalidator
	reconciler  Reconciler
	maxUpload   int64
	logger      *observability.StructuredLogger
}

// UpdateProfileInput carries the submitted settings form. A nil field was not submitted;
// an empty string clears the column. Username is only used to invalidate the profile view.
type UpdateProfileInput struct {
	CallerID    string
	Username    string
	DisplayName *string
	Bio         *string
	Location    *string
	Role        *string
	Rank        *string
	ProfilePic  *FileUpload
	CoverPic    *FileUpload
}

func NewProfileService(
	users repository.UserRepository,
	idp IdentityProvider,
	uploader media.Uploader,
	revalidator Revalidator,
	reconciler Reconciler,
	maxUpload int64,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		users:       users,
		identity:    idp,
		uploader:    uploader,
		revalidator: revalidator,
		reconciler:  reconciler,
		maxUpload:   maxUpload,
		logger:      observability.NewStructuredLogger("profile", logger),
	}
}

// UpdateProfile uploads every new image first, then publishes the profile image URL to the
// identity provider and finally writes only the submitted columns in one update. The local
// img column is written only when the identity provider accepted the new URL, so a failed
// upload leaves both systems untouched. Submitting nothing writes nothing.
func (s *ProfileService) UpdateProfile(ctx context.Context, in UpdateProfileInput) error {
	if in.CallerID == "" {
		return errNotAuthenticated
	}
	op, ctx := begin(ctx, s.logger, "updateProfile", in.CallerID)

	fields := map[string]interface{}{}
	setText := func(column string, v *string) {
		if v != nil {
			fields[column] = *v
		}
	}
	setText("display_name", in.DisplayName)
	setText("bio", in.Bio)
	setText("location", in.Location)

	if in.Role != nil {
		if role, ok := models.ParseRole(*in.Role); ok {
			fields["role"] = role
		}
	}
	if in.Rank != nil {
		if *in.Rank != "" && !models.IsValidRank(*in.Rank) {
			return op.end(ctx, models.NewValidationError("Invalid rank"))
		}
		fields["rank"] = *in.Rank
	}

	for _, f := range []*FileUpload{in.ProfilePic, in.CoverPic} {
		if !f.Empty() && s.maxUpload > 0 && int64(len(f.Data)) > s.maxUpload {
			return op.end(ctx, models.NewValidationError("File is too large"))
		}
	}

	var profile, cover *media.UploadResult
	if !in.ProfilePic.Empty() {
		res, err := s.uploadProfileImage(ctx, in.ProfilePic, media.FolderProfilePics)
		if err != nil {
			return op.end(ctx, err)
		}
		profile = res
	}
	if !in.CoverPic.Empty() {
		res, err := s.uploadProfileImage(ctx, in.CoverPic, media.FolderCoverPics)
		if err != nil {
			return op.end(ctx, err)
		}
		cover = res
	}

	identityImg := false
	if profile != nil {
		if err := s.identity.UpdatePublicMetadata(ctx, in.CallerID, map[string]any{"imageUrl": profile.URL}); err != nil {
			s.logger.LogAsyncOperationError(ctx, "identity.updateMetadata", err, slog.String("user_id", in.CallerID))
		} else {
			fields["img"] = profile.FilePath
			identityImg = true
		}
	}
	if cover != nil {
		fields["cover"] = cover.URL
	}

	if len(fields) == 0 {
		return op.end(ctx, nil, slog.Bool("changed", false))
	}

	if err := s.users.Update(ctx, in.CallerID, fields); err != nil {
		if identityImg {
			s.record(ctx, models.Reconciliation{
				Step:   models.ReconcileSyncProfileImg,
				UserID: in.CallerID,
				Data:   map[string]string{"img": fields["img"].(string)},
				Reason: err.Error(),
			})
		}
		if models.IsCode(err, models.CodeValidation) {
			return op.end(ctx, err)
		}
		return op.end(ctx, models.NewPersistenceError(msgProfileUpdateFailed, err))
	}

	paths := []string{settingsPath}
	if in.Username != "" {
		paths = append(paths, profilePath(in.Username))
	}
	s.revalidator.Revalidate(ctx, paths...)
	return op.end(ctx, nil, slog.Int("fields", len(fields)))
}

func (s *ProfileService) uploadProfileImage(ctx context.Context, f *FileUpload, folder string) (*media.UploadResult, error) {
	info, err := media.Inspect(f.Data, f.Name, f.ContentType)
	if err != nil || info.Kind != media.KindImage {
		return nil, models.NewValidationError("Invalid image file")
	}
	res, err := s.uploader.Upload(ctx, media.UploadInput{
		File:              f.Data,
		FileName:          f.Name,
		Folder:            folder,
		Transformation:    media.ProfileTransform,
		UseUniqueFileName: true,
	})
	if err != nil {
		return nil, models.NewUpstreamError(msgProfileUpdateFailed, err)
	}
	return res, nil
}

// DeleteAccount deletes the caller from the identity provider, then locally. An account the
// identity provider no longer knows, or a local row that is already gone, counts as deleted.
// Any other local failure is queued for reconciliation and reported.
func (s *ProfileService) DeleteAccount(ctx context.Context, callerID string) error {
	if callerID == "" {
		return models.NewUnauthenticatedError("User not authenticated.")
	}
	op, ctx := begin(ctx, s.logger, "deleteAccount", callerID)

	if err := s.identity.DeleteUser(ctx, callerID); err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		return op.end(ctx, models.NewUpstreamError("Clerk API Error: "+identityMessage(err), err))
	}

	err := s.users.Delete(ctx, callerID)
	switch {
	case err == nil:
	case models.IsCode(err, models.CodeNotFound):
		s.logger.LogServiceCall(ctx, "deleteAccount.local", nil, slog.Bool("already_removed", true))
	default:
		s.record(ctx, models.Reconciliation{
			Step:   models.ReconcileDeleteLocalUser,
			UserID: callerID,
			Reason: err.Error(),
		})
		return op.end(ctx, models.NewPersistenceError(msgAccountLocalFailed, err))
	}

	s.revalidator.Revalidate(ctx, feedPath)
	return op.end(ctx, nil)
}

func (s *ProfileService) record(ctx context.Context, rec models.Reconciliation) {
	if err := s.reconciler.Record(ctx, rec); err != nil {
		s.logger.LogAsyncOperationError(ctx, "reconcile.record", err,
			slog.String("step", rec.Step), slog.String("user_id", rec.UserID))
	}
}

func identityMessage(err error) string {
	var apiErr *identity.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.Message(); msg != "" {
			return msg
		}
	}
	return err.Error()
}
