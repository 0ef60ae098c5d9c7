package storage

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Kyz7/desa/internal/store"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)
	pdfBytes = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func fieldError(t *testing.T, err error) string {
	t.Helper()
	var verr *store.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields["file"]
}

func TestValidate(t *testing.T) {
	limits := Limits{MaxImageSize: 1024, MaxDocumentSize: 2048}

	t.Run("Success - png image", func(t *testing.T) {
		mime, err := Validate(fileHeader(t, "photo.png", pngBytes), CategoryImage, limits)
		require.NoError(t, err)
		assert.Equal(t, "image/png", mime)
	})

	t.Run("Success - pdf document", func(t *testing.T) {
		mime, err := Validate(fileHeader(t, "surat.pdf", pdfBytes), CategoryDocument, limits)
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", mime)
	})

	t.Run("Error - content decides, not the file name", func(t *testing.T) {
		_, err := Validate(fileHeader(t, "photo.jpg", []byte("just some text pretending")), CategoryImage, limits)
		assert.Contains(t, fieldError(t, err), "not an allowed image type")
	})

	t.Run("Error - pdf is not an image", func(t *testing.T) {
		_, err := Validate(fileHeader(t, "surat.pdf", pdfBytes), CategoryImage, limits)
		assert.NotEmpty(t, fieldError(t, err))
	})

	t.Run("Error - too large", func(t *testing.T) {
		big := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{1}, 2048)...)
		_, err := Validate(fileHeader(t, "big.png", big), CategoryImage, limits)
		assert.Contains(t, fieldError(t, err), "exceeds")
	})

	t.Run("Error - missing file", func(t *testing.T) {
		_, err := Validate(nil, CategoryImage, limits)
		assert.Equal(t, "file is required", fieldError(t, err))
	})
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("")
	assert.NoError(t, err)
	assert.Equal(t, CategoryImage, c)

	c, err = ParseCategory("Document")
	assert.NoError(t, err)
	assert.Equal(t, CategoryDocument, c)

	_, err = ParseCategory("video")
	assert.Error(t, err)
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st, err := NewLocalStore(dir, "/uploads")
	require.NoError(t, err)

	up := NewUploader(st, Limits{MaxImageSize: 1 << 20, MaxDocumentSize: 1 << 20})

	obj, err := up.Upload(ctx, fileHeader(t, "balai desa.png", pngBytes), CategoryImage)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.URL, "/uploads/photos/"))
	assert.True(t, strings.HasSuffix(obj.URL, ".png"))
	assert.Equal(t, "balai desa.png", obj.FileName)
	assert.Equal(t, int64(len(pngBytes)), obj.Size)

	onDisk := filepath.Join(dir, strings.TrimPrefix(obj.URL, "/uploads/"))
	_, err = os.Stat(onDisk)
	require.NoError(t, err)

	t.Run("Success - delete removes the file", func(t *testing.T) {
		require.NoError(t, up.Delete(ctx, obj.URL))
		_, err := os.Stat(onDisk)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Error - traversal is refused", func(t *testing.T) {
		assert.ErrorIs(t, st.Delete(ctx, "/uploads/../../etc/passwd"), ErrForeignURL)
		assert.ErrorIs(t, st.Delete(ctx, "/elsewhere/file.png"), ErrForeignURL)
	})

	t.Run("Error - sibling of the public path is refused", func(t *testing.T) {
		sibling := filepath.Join(dir, "X", "a.png")
		require.NoError(t, os.MkdirAll(filepath.Dir(sibling), 0o755))
		require.NoError(t, os.WriteFile(sibling, pngBytes, 0o644))

		assert.ErrorIs(t, st.Delete(ctx, "/uploadsX/a.png"), ErrForeignURL)
		assert.ErrorIs(t, st.Delete(ctx, "/uploads"), ErrForeignURL)
		assert.FileExists(t, sibling)
	})
}

type fakeS3 struct {
	s3iface.S3API
	puts    []*s3.PutObjectInput
	deletes []string
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	_, _ = io.Copy(io.Discard, in.Body)
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - bucket url", func(t *testing.T) {
		client := &fakeS3{}
		st := NewS3StoreWithClient(client, "desa-media", "ap-southeast-1", "")

		url, err := st.Put(ctx, "documents/a.pdf", bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf")
		require.NoError(t, err)
		assert.Equal(t, "https://desa-media.s3.ap-southeast-1.amazonaws.com/documents/a.pdf", url)
		require.Len(t, client.puts, 1)
		assert.Equal(t, "public-read", aws.StringValue(client.puts[0].ACL))

		require.NoError(t, st.Delete(ctx, url))
		assert.Equal(t, []string{"documents/a.pdf"}, client.deletes)
	})

	t.Run("Success - cloudfront url", func(t *testing.T) {
		client := &fakeS3{}
		st := NewS3StoreWithClient(client, "desa-media", "ap-southeast-1", "https://cdn.desa.id/")

		url, err := st.Put(ctx, "photos/b.png", bytes.NewReader(pngBytes), int64(len(pngBytes)), "image/png")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.desa.id/photos/b.png", url)

		require.NoError(t, st.Delete(ctx, url))
		assert.Equal(t, []string{"photos/b.png"}, client.deletes)
	})

	t.Run("Error - foreign url", func(t *testing.T) {
		st := NewS3StoreWithClient(&fakeS3{}, "desa-media", "ap-southeast-1", "")
		assert.ErrorIs(t, st.Delete(ctx, "https://example.com/x.png"), ErrForeignURL)
	})
}
