package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kvo5/marvel-madness/internal/media"
	"github.com/kvo5/marvel-madness/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	existsFn        func(context.Context, string) (bool, error)
	upsertFn        func(context.Context, *models.User) error
	updateFn        func(context.Context, string, map[string]interface{}) error
	deleteFn        func(context.Context, string) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Exists(ctx context.Context, id string) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *userRepoStub) Upsert(ctx context.Context, user *models.User) error {
	return s.upsertFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return s.updateFn(ctx, id, fields)
}
func (s *userRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn  func(context.Context, *models.Post) error
	getByIDFn func(context.Context, uint) (*models.Post, error)
	deleteFn  func(context.Context, uint) error
	feedFn    func(context.Context, int, int) ([]*models.Post, error)
	byUserFn  func(context.Context, string, int, int) ([]*models.Post, error)
	detailFn  func(context.Context, uint) (*models.Post, error)
	repliesFn func(context.Context, uint) ([]*models.Post, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) Feed(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.feedFn(ctx, limit, offset)
}
func (s *postRepoStub) ByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Post, error) {
	return s.byUserFn(ctx, userID, limit, offset)
}
func (s *postRepoStub) Detail(ctx context.Context, id uint) (*models.Post, error) {
	return s.detailFn(ctx, id)
}
func (s *postRepoStub) Replies(ctx context.Context, parentID uint) ([]*models.Post, error) {
	return s.repliesFn(ctx, parentID)
}

// relationRepoStub keeps relations in memory so toggles behave like the real store.
type relationRepoStub struct {
	mu      sync.Mutex
	rows    map[string]bool
	failErr error
}

func newRelationRepoStub() *relationRepoStub {
	return &relationRepoStub{rows: make(map[string]bool)}
}

func (s *relationRepoStub) flip(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return false, s.failErr
	}
	if s.rows[key] {
		delete(s.rows, key)
		return false, nil
	}
	s.rows[key] = true
	return true, nil
}

func (s *relationRepoStub) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[key]
}

func (s *relationRepoStub) ToggleFollow(_ context.Context, followerID, followingID string) (bool, error) {
	return s.flip("follow:" + followerID + ":" + followingID)
}
func (s *relationRepoStub) ToggleLike(_ context.Context, userID string, postID uint) (bool, error) {
	return s.flip(pairKey("like", userID, postID))
}
func (s *relationRepoStub) ToggleSave(_ context.Context, userID string, postID uint) (bool, error) {
	return s.flip(pairKey("save", userID, postID))
}
func (s *relationRepoStub) ToggleRepost(_ context.Context, userID string, postID uint) (bool, error) {
	return s.flip(pairKey("repost", userID, postID))
}
func (s *relationRepoStub) IsFollowing(_ context.Context, followerID, followingID string) (bool, error) {
	return s.has("follow:" + followerID + ":" + followingID), nil
}

func pairKey(kind, userID string, postID uint) string {
	return kind + ":" + userID + ":" + statusPath("", postID)
}

// revalidatorStub records every invalidated path.
type revalidatorStub struct {
	mu    sync.Mutex
	paths []string
}

func (r *revalidatorStub) Revalidate(_ context.Context, paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, paths...)
}

func (r *revalidatorStub) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// reconcilerStub collects recorded reconciliations.
type reconcilerStub struct {
	records []models.Reconciliation
	err     error
}

func (r *reconcilerStub) Record(_ context.Context, rec models.Reconciliation) error {
	r.records = append(r.records, rec)
	return r.err
}

// identityMock is a testify mock of IdentityProvider.
type identityMock struct {
	mock.Mock
}

func (m *identityMock) UpdatePublicMetadata(ctx context.Context, userID string, metadata map[string]any) error {
	return m.Called(ctx, userID, metadata).Error(0)
}

func (m *identityMock) DeleteUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// uploaderStub records uploads and answers with uploadFn when set, otherwise result or err.
type uploaderStub struct {
	calls    []media.UploadInput
	result   *media.UploadResult
	err      error
	uploadFn func(media.UploadInput) (*media.UploadResult, error)
}

func (u *uploaderStub) Upload(_ context.Context, in media.UploadInput) (*media.UploadResult, error) {
	u.calls = append(u.calls, in)
	if u.uploadFn != nil {
		return u.uploadFn(in)
	}
	if u.err != nil {
		return nil, u.err
	}
	return u.result, nil
}

var errDB = errors.New("connection reset by peer")

// webm header bytes sniff as video/webm.
var webmBytes = []byte{0x1A, 0x45, 0xDF, 0xA3, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x1F}

// assertCode asserts that err is an AppError with the given code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}
