package media

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kvo5/marvel-madness/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	info, err := Inspect(testutil.PNG(t, 32, 18), "a.png", "")
	require.NoError(t, err)
	assert.Equal(t, KindImage, info.Kind)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, 32, info.Width)
	assert.Equal(t, 18, info.Height)

	corrupt := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 16)...)
	_, err = Inspect(corrupt, "a.png", "")
	assert.ErrorIs(t, err, ErrCorruptImage)

	info, err = Inspect([]byte("just some text"), "notes.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, KindOther, info.Kind)

	webm := []byte("\x1a\x45\xdf\xa3" + "webm-ish payload")
	info, err = Inspect(webm, "", "")
	require.NoError(t, err)
	assert.Equal(t, KindVideo, info.Kind)
}

func TestInspect_FormatsWithoutDecoder(t *testing.T) {
	tests := []struct {
		name         string
		data         []byte
		fileName     string
		declaredType string
		wantKind     Kind
		wantType     string
	}{
		{
			name:     "quicktime",
			data:     []byte("\x00\x00\x00\x14ftypqt  \x00\x00\x02\x00qt  "),
			fileName: "clip.mov",
			wantKind: KindVideo,
			wantType: "video/quicktime",
		},
		{
			name:     "heic",
			data:     []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00mif1heic"),
			fileName: "IMG_0001.HEIC",
			wantKind: KindImage,
			wantType: "image/heic",
		},
		{
			name:     "bmp",
			data:     append([]byte("BM"), bytes.Repeat([]byte{0}, 30)...),
			fileName: "old.bmp",
			wantKind: KindImage,
			wantType: "image/bmp",
		},
		{
			name:         "declared video type",
			data:         []byte("\x00\x01\x02\x03opaque container"),
			fileName:     "clip.bin",
			declaredType: "video/x-matroska",
			wantKind:     KindVideo,
			wantType:     "video/x-matroska",
		},
		{
			name:     "extension",
			data:     []byte("\x00\x01\x02\x03opaque container"),
			fileName: "photo.avif",
			wantKind: KindImage,
			wantType: "image/avif",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Inspect(tt.data, tt.fileName, tt.declaredType)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, info.Kind)
			assert.Equal(t, tt.wantType, info.ContentType)
			assert.Zero(t, info.Width)
		})
	}
}

func TestPostTransform(t *testing.T) {
	assert.Equal(t, "w-600,ar-1-1", PostTransform(KindImage, "square"))
	assert.Equal(t, "w-600,ar-16-9", PostTransform(KindImage, "wide"))
	assert.Equal(t, "w-600", PostTransform(KindImage, "original"))
	assert.Equal(t, "w-600", PostTransform(KindImage, ""))
	assert.Equal(t, "", PostTransform(KindVideo, "wide"))
}

func TestClient_Upload(t *testing.T) {
	var fields map[string]string
	var fileBody []byte
	var user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		fields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		if f, _, err := r.FormFile("file"); err == nil {
			fileBody, _ = io.ReadAll(f)
		}

		_ = json.NewEncoder(w).Encode(UploadResult{
			FileID:   "f_1",
			Name:     "shot_abc.png",
			FilePath: "/posts/shot_abc.png",
			URL:      "https://ik.imagekit.io/demo/posts/shot_abc.png",
			FileType: "image",
			Height:   600,
			Width:    600,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "private_test", time.Second)
	res, err := c.Upload(context.Background(), UploadInput{
		File:              []byte("payload"),
		FileName:          "shot.png",
		Folder:            FolderPosts,
		Transformation:    "w-600,ar-1-1",
		UseUniqueFileName: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "private_test", user)
	assert.Equal(t, "", pass)
	assert.Equal(t, "payload", string(fileBody))
	assert.Equal(t, "shot.png", fields["fileName"])
	assert.Equal(t, "/posts", fields["folder"])
	assert.Equal(t, "true", fields["useUniqueFileName"])
	assert.JSONEq(t, `{"pre":"w-600,ar-1-1"}`, fields["transformation"])

	assert.True(t, res.IsImage())
	assert.Equal(t, "/posts/shot_abc.png", res.FilePath)
	assert.Equal(t, 600, res.Height)
}

func TestClient_UploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message":"Your account cannot be authenticated."}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad", time.Second)
	_, err := c.Upload(context.Background(), UploadInput{File: []byte("x"), FileName: "x.png"})
	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusBadRequest, upErr.Status)
	assert.Equal(t, "Your account cannot be authenticated.", upErr.Message)

	_, err = c.Upload(context.Background(), UploadInput{FileName: "empty.png"})
	assert.Error(t, err)
}
