package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kvo5/marvel-madness/internal/media"
	"github.com/kvo5/marvel-madness/internal/models"
	"github.com/kvo5/marvel-madness/internal/observability"
	"github.com/kvo5/marvel-madness/internal/repository"
)

var (
	errNotAuthenticated = &models.AppError{Code: models.CodeUnauthenticated, Message: "Not authenticated"}
	errPostNotFound     = &models.AppError{Code: models.CodeNotFound, Message: "Post not found"}
	errPostNotOwner     = models.NewUnauthorizedError("Unauthorized")
)

// PostService creates comments and posts and deletes posts.
type PostService struct {
	posts       repository.PostRepository
	uploader    media.Uploader
	revalidator Revalidator
	maxUpload   int64
	logger      *observability.StructuredLogger
}

type AddCommentInput struct {
	CallerID string
	PostID   uint
	Desc     string
}

type AddPostInput struct {
	CallerID string
	Desc     string
	File     *FileUpload
	// ImgType is the aspect hint for images: "square", "wide" or anything else for original.
	ImgType     string
	IsSensitive bool
}

// NewPostService wires a PostService. maxUpload <= 0 disables the size check.
func NewPostService(
	posts repository.PostRepository,
	uploader media.Uploader,
	revalidator Revalidator,
	maxUpload int64,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:       posts,
		uploader:    uploader,
		revalidator: revalidator,
		maxUpload:   maxUpload,
		logger:      observability.NewStructuredLogger("post", logger),
	}
}

// AddComment replies to in.PostID and invalidates the parent's status view.
func (s *PostService) AddComment(ctx context.Context, in AddCommentInput) (*models.Post, error) {
	if in.CallerID == "" {
		return nil, errNotAuthenticated
	}
	op, ctx := begin(ctx, s.logger, "addComment", in.CallerID)

	if in.PostID == 0 {
		return nil, op.end(ctx, models.NewValidationError("Invalid post ID"))
	}
	if err := models.ValidatePostText(in.Desc); err != nil {
		return nil, op.end(ctx, err)
	}

	parent, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, op.end(ctx, err)
	}

	comment := &models.Post{
		UserID:       in.CallerID,
		Desc:         in.Desc,
		ParentPostID: &parent.ID,
	}
	if err := s.posts.Create(ctx, comment); err != nil {
		return nil, op.end(ctx, err)
	}

	if parent.User != nil {
		s.revalidator.Revalidate(ctx, statusPath(parent.User.Username, parent.ID))
	}
	return comment, op.end(ctx, nil, slog.Uint64("post_id", uint64(comment.ID)))
}

// AddPost validates the text before uploading any attachment, then creates the post and
// invalidates the feed.
func (s *PostService) AddPost(ctx context.Context, in AddPostInput) (*models.Post, error) {
	if in.CallerID == "" {
		return nil, errNotAuthenticated
	}
	op, ctx := begin(ctx, s.logger, "addPost", in.CallerID)

	if err := models.ValidatePostText(in.Desc); err != nil {
		return nil, op.end(ctx, err)
	}

	post := &models.Post{
		UserID:      in.CallerID,
		Desc:        in.Desc,
		IsSensitive: in.IsSensitive,
	}

	if !in.File.Empty() {
		if err := s.attach(ctx, post, in.File, in.ImgType); err != nil {
			return nil, op.end(ctx, err)
		}
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, op.end(ctx, err)
	}

	s.revalidator.Revalidate(ctx, feedPath)
	return post, op.end(ctx, nil, slog.Uint64("post_id", uint64(post.ID)))
}

// attach uploads file to the posts folder and stores the resulting path on post. The local
// classification only picks the transformation; the column follows the kind the media host
// reports.
func (s *PostService) attach(ctx context.Context, post *models.Post, file *FileUpload, imgType string) error {
	if s.maxUpload > 0 && int64(len(file.Data)) > s.maxUpload {
		return models.NewValidationError("File is too large")
	}

	info, err := media.Inspect(file.Data, file.Name, file.ContentType)
	if err != nil {
		return models.NewValidationError("Invalid image file")
	}

	res, err := s.uploader.Upload(ctx, media.UploadInput{
		File:              file.Data,
		FileName:          file.Name,
		Folder:            media.FolderPosts,
		Transformation:    media.PostTransform(info.Kind, imgType),
		UseUniqueFileName: true,
	})
	if err != nil {
		return models.NewUpstreamError("Failed to upload file", err)
	}

	if res.IsImage() {
		post.Img = res.FilePath
		post.ImgHeight = res.Height
	} else {
		post.Video = res.FilePath
	}
	return nil
}

// DeletePost removes a post owned by the caller and invalidates the feed, the author's
// profile, the post's status view and, for a reply, the parent's status view.
func (s *PostService) DeletePost(ctx context.Context, callerID string, postID uint) error {
	if callerID == "" {
		return errNotAuthenticated
	}
	op, ctx := begin(ctx, s.logger, "deletePost", callerID)
	fields := []any{slog.Uint64("post_id", uint64(postID))}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return op.end(ctx, postLookupError(err), fields...)
	}
	if post.UserID != callerID {
		return op.end(ctx, errPostNotOwner, fields...)
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return op.end(ctx, postLookupError(err), fields...)
	}

	paths := []string{feedPath}
	if post.User != nil {
		paths = append(paths, profilePath(post.User.Username), statusPath(post.User.Username, post.ID))
	}
	if parent := post.ParentPost; parent != nil && parent.User != nil {
		paths = append(paths, statusPath(parent.User.Username, parent.ID))
	}
	s.revalidator.Revalidate(ctx, paths...)
	return op.end(ctx, nil, fields...)
}

func postLookupError(err error) error {
	if models.IsCode(err, models.CodeNotFound) {
		return errPostNotFound
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodePersistence {
		return appErr
	}
	return models.NewPersistenceError("Database error", err)
}
