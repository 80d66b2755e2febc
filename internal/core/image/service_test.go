package image

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"snapcook-api/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeOutput(t *testing.T, dataURL string) image.Config {
	t.Helper()
	payload, ok := strings.CutPrefix(dataURL, "data:image/jpeg;base64,")
	require.True(t, ok)
	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	return cfg
}

func TestNormalize_ReencodesAsJPEG(t *testing.T) {
	svc := NewService(config.ImageConfig{})

	out, err := svc.Normalize(pngBytes(t, 64, 48), "image/png")
	require.NoError(t, err)

	cfg := decodeOutput(t, out)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 48, cfg.Height)
}

func TestNormalize_DownscalesLargeImages(t *testing.T) {
	svc := NewService(config.ImageConfig{MaxDimension: 100})

	out, err := svc.Normalize(pngBytes(t, 400, 200), "")
	require.NoError(t, err)

	cfg := decodeOutput(t, out)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)

	out, err = svc.Normalize(pngBytes(t, 150, 300), "application/octet-stream")
	require.NoError(t, err)

	cfg = decodeOutput(t, out)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 100, cfg.Height)
}

func TestNormalize_RejectsInvalidInput(t *testing.T) {
	svc := NewService(config.ImageConfig{MaxSizeBytes: 1024})

	tests := []struct {
		name        string
		data        []byte
		contentType string
		want        error
	}{
		{"empty", nil, "image/png", ErrEmptyImage},
		{"too large", make([]byte, 2048), "image/png", ErrImageTooLarge},
		{"text content type", []byte("hello"), "text/plain", ErrUnsupportedType},
		{"corrupt bytes", []byte("definitely not an image"), "image/jpeg", ErrUndecodableImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Normalize(tt.data, tt.contentType)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// oversizedPNG 產生一個標頭宣告 w x h、實際只有 1x1 像素資料的 PNG
func oversizedPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1)
	// IHDR 資料緊接在 8 位元組簽章與 8 位元組 chunk 標頭之後
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestNormalize_RejectsTooManyPixels(t *testing.T) {
	svc := NewService(config.ImageConfig{})

	data := oversizedPNG(t, 100000, 100000)
	require.Less(t, len(data), 1024)

	_, err := svc.Normalize(data, "image/png")
	assert.ErrorIs(t, err, ErrImageDimensions)
}

func TestNormalize_PixelLimitIsConfigurable(t *testing.T) {
	svc := NewService(config.ImageConfig{MaxPixels: 100 * 100})

	_, err := svc.Normalize(pngBytes(t, 100, 100), "image/png")
	require.NoError(t, err)

	_, err = svc.Normalize(pngBytes(t, 101, 100), "image/png")
	assert.ErrorIs(t, err, ErrImageDimensions)
}
