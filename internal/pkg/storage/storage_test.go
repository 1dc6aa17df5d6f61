package storage

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xyz-asif/callboard/internal/config"
	"go.uber.org/zap"
)

func fileHeaders(t *testing.T, files map[string]string) []*multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for name, contentType := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="images"; filename="`+name+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["images"]
}

func TestValidateImageFile(t *testing.T) {
	headers := fileHeaders(t, map[string]string{"photo.JPG": "image/jpeg"})
	require.Len(t, headers, 1)
	assert.NoError(t, ValidateImageFile(headers[0]))

	headers = fileHeaders(t, map[string]string{"notes.txt": "text/plain"})
	assert.Error(t, ValidateImageFile(headers[0]))

	headers = fileHeaders(t, map[string]string{"trick.png": "application/pdf"})
	assert.Error(t, ValidateImageFile(headers[0]))

	headers = fileHeaders(t, map[string]string{"big.png": "image/png"})
	headers[0].Size = MaxImageSize + 1
	assert.Error(t, ValidateImageFile(headers[0]))
}

func TestFromHeaders(t *testing.T) {
	headers := fileHeaders(t, map[string]string{"a.png": "image/png", "b.webp": "image/webp"})

	images, closeAll, err := FromHeaders(headers)
	require.NoError(t, err)
	defer closeAll()

	require.Len(t, images, 2)
	for _, img := range images {
		assert.NotNil(t, img.Reader)
		assert.Equal(t, int64(len("fake-bytes")), img.Size)
	}
}

func TestFromHeadersRejectsBadFile(t *testing.T) {
	headers := fileHeaders(t, map[string]string{"a.exe": "application/octet-stream"})

	images, closeAll, err := FromHeaders(headers)
	require.Error(t, err)
	closeAll()
	assert.Nil(t, images)
}

func TestObjectKey(t *testing.T) {
	k1 := objectKey("Photo.PNG")
	k2 := objectKey("Photo.PNG")

	assert.Regexp(t, `^calls/[0-9a-f-]{36}\.png$`, k1)
	assert.NotEqual(t, k1, k2)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), &config.Config{ImageStorage: "ftp"}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewCloudinaryRequiresCredentials(t *testing.T) {
	_, err := NewCloudinary("", "", "", "")
	assert.Error(t, err)

	up, err := NewCloudinary("demo", "key", "secret", "")
	require.NoError(t, err)
	assert.Equal(t, "callboard", up.uploadFolder)
}
