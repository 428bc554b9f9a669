package service

import (
	"context"
	"strings"
	"testing"

	"github.com/kvo5/marvel-madness/internal/media"
	"github.com/kvo5/marvel-madness/internal/models"
	"github.com/kvo5/marvel-madness/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error {
			p.ID = 100
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: "user_seed_1", User: &models.User{ID: "user_seed_1", Username: "IronLegion"}}, nil
		},
		deleteFn: func(_ context.Context, _ uint) error { return nil },
	}
}

func newPostService(posts *postRepoStub, up *uploaderStub, rv *revalidatorStub) *PostService {
	return NewPostService(posts, up, rv, 1<<20, nil)
}

func TestPostService_AddComment(t *testing.T) {
	ctx := context.Background()

	t.Run("too long is rejected before any write", func(t *testing.T) {
		posts := noopPostRepo()
		posts.createFn = func(context.Context, *models.Post) error {
			t.Fatal("create must not be called")
			return nil
		}
		_, err := newPostService(posts, &uploaderStub{}, &revalidatorStub{}).AddComment(ctx, AddCommentInput{
			CallerID: "user_seed_2", PostID: 3, Desc: strings.Repeat("a", 141),
		})
		assertValidationError(t, err)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := newPostService(noopPostRepo(), &uploaderStub{}, &revalidatorStub{}).AddComment(ctx, AddCommentInput{PostID: 3})
		assertCode(t, err, models.CodeUnauthenticated)
	})

	t.Run("missing parent", func(t *testing.T) {
		posts := noopPostRepo()
		posts.getByIDFn = func(context.Context, uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", 3)
		}
		_, err := newPostService(posts, &uploaderStub{}, &revalidatorStub{}).AddComment(ctx, AddCommentInput{
			CallerID: "user_seed_2", PostID: 3, Desc: "nice",
		})
		assertCode(t, err, models.CodeNotFound)
	})

	t.Run("creates reply and invalidates parent status view", func(t *testing.T) {
		var created *models.Post
		posts := noopPostRepo()
		posts.createFn = func(_ context.Context, p *models.Post) error {
			created = p
			return nil
		}
		rv := &revalidatorStub{}

		desc := strings.Repeat("é", 140)
		_, err := newPostService(posts, &uploaderStub{}, rv).AddComment(ctx, AddCommentInput{
			CallerID: "user_seed_2", PostID: 3, Desc: desc,
		})
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, "user_seed_2", created.UserID)
		require.NotNil(t, created.ParentPostID)
		assert.Equal(t, uint(3), *created.ParentPostID)
		assert.Equal(t, []string{"/IronLegion/status/3"}, rv.Paths())
	})
}

func TestPostService_AddPost_ValidatesBeforeUpload(t *testing.T) {
	up := &uploaderStub{result: &media.UploadResult{FileType: "image"}}
	posts := noopPostRepo()
	posts.createFn = func(context.Context, *models.Post) error {
		t.Fatal("create must not be called")
		return nil
	}

	_, err := newPostService(posts, up, &revalidatorStub{}).AddPost(context.Background(), AddPostInput{
		CallerID: "user_seed_1",
		Desc:     strings.Repeat("x", 141),
		File:     &FileUpload{Name: "a.png", Data: testutil.PNG(t, 4, 4)},
	})
	assertValidationError(t, err)
	assert.Empty(t, up.calls)
}

func TestPostService_AddPost_Attachments(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		file          *FileUpload
		imgType       string
		result        *media.UploadResult
		wantTransform string
		wantImg       string
		wantHeight    int
		wantVideo     string
	}{
		{
			name:          "square image",
			file:          &FileUpload{Name: "a.png", Data: testutil.PNG(t, 8, 8)},
			imgType:       "square",
			result:        &media.UploadResult{FileType: "image", FilePath: "/posts/a.png", Height: 600},
			wantTransform: "w-600,ar-1-1",
			wantImg:       "/posts/a.png",
			wantHeight:    600,
		},
		{
			name:          "wide image",
			file:          &FileUpload{Name: "b.png", Data: testutil.PNG(t, 16, 9)},
			imgType:       "wide",
			result:        &media.UploadResult{FileType: "image", FilePath: "/posts/b.png", Height: 338},
			wantTransform: "w-600,ar-16-9",
			wantImg:       "/posts/b.png",
			wantHeight:    338,
		},
		{
			name:          "original image",
			file:          &FileUpload{Name: "c.png", Data: testutil.PNG(t, 3, 5)},
			imgType:       "original",
			result:        &media.UploadResult{FileType: "image", FilePath: "/posts/c.png", Height: 1000},
			wantTransform: "w-600",
			wantImg:       "/posts/c.png",
			wantHeight:    1000,
		},
		{
			name:      "quicktime is uploaded untransformed",
			file:      &FileUpload{Name: "clip.mov", Data: []byte("\x00\x00\x00\x14ftypqt  \x00\x00\x02\x00qt  ")},
			imgType:   "wide",
			result:    &media.UploadResult{FileType: "non-image", FilePath: "/posts/clip.mov"},
			wantVideo: "/posts/clip.mov",
		},
		{
			name:       "host decides the kind of an unknown file",
			file:       &FileUpload{Name: "scan", ContentType: "application/octet-stream", Data: []byte("\x00\x01opaque")},
			imgType:    "square",
			result:     &media.UploadResult{FileType: "image", FilePath: "/posts/scan", Height: 420},
			wantImg:    "/posts/scan",
			wantHeight: 420,
		},
		{
			name:      "video is not transformed",
			file:      &FileUpload{Name: "clip.webm", Data: webmBytes},
			imgType:   "square",
			result:    &media.UploadResult{FileType: "non-image", FilePath: "/posts/clip.webm"},
			wantVideo: "/posts/clip.webm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created *models.Post
			posts := noopPostRepo()
			posts.createFn = func(_ context.Context, p *models.Post) error {
				created = p
				return nil
			}
			up := &uploaderStub{result: tt.result}
			rv := &revalidatorStub{}

			_, err := newPostService(posts, up, rv).AddPost(ctx, AddPostInput{
				CallerID: "user_seed_1", Desc: "Assemble", File: tt.file, ImgType: tt.imgType, IsSensitive: true,
			})
			require.NoError(t, err)
			require.Len(t, up.calls, 1)
			assert.Equal(t, media.FolderPosts, up.calls[0].Folder)
			assert.Equal(t, tt.wantTransform, up.calls[0].Transformation)
			assert.True(t, up.calls[0].UseUniqueFileName)

			require.NotNil(t, created)
			assert.Equal(t, tt.wantImg, created.Img)
			assert.Equal(t, tt.wantHeight, created.ImgHeight)
			assert.Equal(t, tt.wantVideo, created.Video)
			assert.True(t, created.IsSensitive)
			assert.Equal(t, []string{"/"}, rv.Paths())
		})
	}
}

func TestPostService_AddPost_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("upload failure is upstream", func(t *testing.T) {
		up := &uploaderStub{err: &media.UploadError{Status: 500, Message: "boom"}}
		_, err := newPostService(noopPostRepo(), up, &revalidatorStub{}).AddPost(ctx, AddPostInput{
			CallerID: "user_seed_1", File: &FileUpload{Name: "a.png", Data: testutil.PNG(t, 2, 2)},
		})
		assertCode(t, err, models.CodeUpstream)
	})

	t.Run("corrupt image", func(t *testing.T) {
		data := testutil.PNG(t, 2, 2)[:20]
		_, err := newPostService(noopPostRepo(), &uploaderStub{}, &revalidatorStub{}).AddPost(ctx, AddPostInput{
			CallerID: "user_seed_1", File: &FileUpload{Name: "a.png", Data: data},
		})
		assertValidationError(t, err)
	})

	t.Run("too large", func(t *testing.T) {
		svc := NewPostService(noopPostRepo(), &uploaderStub{}, &revalidatorStub{}, 10, nil)
		_, err := svc.AddPost(ctx, AddPostInput{
			CallerID: "user_seed_1", File: &FileUpload{Name: "a.png", Data: testutil.PNG(t, 2, 2)},
		})
		assertValidationError(t, err)
	})

	t.Run("store failure", func(t *testing.T) {
		posts := noopPostRepo()
		posts.createFn = func(context.Context, *models.Post) error {
			return models.NewPersistenceError("Database error", errDB)
		}
		rv := &revalidatorStub{}
		_, err := newPostService(posts, &uploaderStub{}, rv).AddPost(ctx, AddPostInput{CallerID: "user_seed_1", Desc: "hi"})
		assertCode(t, err, models.CodePersistence)
		assert.Empty(t, rv.Paths())
	})
}

func TestPostService_DeletePost(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		caller    string
		getErr    error
		deleteErr error
		wantMsg   string
		deleted   bool
	}{
		{name: "unauthenticated", caller: "", wantMsg: "Not authenticated"},
		{name: "missing post", caller: "user_seed_1", getErr: models.NewNotFoundError("Post", 5), wantMsg: "Post not found"},
		{name: "lookup failure", caller: "user_seed_1", getErr: errDB, wantMsg: "Database error"},
		{name: "not the owner", caller: "user_seed_2", wantMsg: "Unauthorized"},
		{name: "delete failure", caller: "user_seed_1", deleteErr: models.NewPersistenceError("Database error", errDB), wantMsg: "Database error", deleted: true},
		{name: "owner deletes", caller: "user_seed_1", deleted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts := noopPostRepo()
			deleted := false
			if tt.getErr != nil {
				posts.getByIDFn = func(context.Context, uint) (*models.Post, error) { return nil, tt.getErr }
			}
			posts.deleteFn = func(context.Context, uint) error {
				deleted = true
				return tt.deleteErr
			}
			rv := &revalidatorStub{}

			err := newPostService(posts, &uploaderStub{}, rv).DeletePost(ctx, tt.caller, 5)
			assert.Equal(t, tt.deleted, deleted)

			result := models.ResultFromError(err)
			if tt.wantMsg != "" {
				assert.False(t, result.Success)
				assert.Equal(t, tt.wantMsg, result.Error)
				return
			}
			assert.True(t, result.Success)
			assert.Equal(t, []string{"/", "/IronLegion", "/IronLegion/status/5"}, rv.Paths())
		})
	}
}

func TestPostService_DeletePost_ReplyInvalidatesParent(t *testing.T) {
	parentID := uint(3)
	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{
			ID:           id,
			UserID:       "user_seed_2",
			User:         &models.User{ID: "user_seed_2", Username: "WebHeadWins"},
			ParentPostID: &parentID,
			ParentPost:   &models.Post{ID: parentID, User: &models.User{ID: "user_seed_1", Username: "IronLegion"}},
		}, nil
	}
	rv := &revalidatorStub{}

	require.NoError(t, newPostService(posts, &uploaderStub{}, rv).DeletePost(context.Background(), "user_seed_2", 9))
	assert.Equal(t, []string{"/", "/WebHeadWins", "/WebHeadWins/status/9", "/IronLegion/status/3"}, rv.Paths())
}
