package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	"snapcook-api/internal/infrastructure/config"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // 支援 WebP
)

// 圖片驗證錯誤
var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrImageTooLarge    = errors.New("image exceeds the maximum size")
	ErrImageDimensions  = errors.New("image dimensions exceed the pixel limit")
	ErrUnsupportedType  = errors.New("unsupported content type")
	ErrUndecodableImage = errors.New("image could not be decoded")
)

const dataURLPrefix = "data:image/jpeg;base64,"

// Service 圖片處理服務
type Service struct {
	maxSizeBytes int64
	maxPixels    int64
	maxDimension int
	quality      int
}

// NewService 創建新的圖片處理服務
func NewService(cfg config.ImageConfig) *Service {
	s := &Service{
		maxSizeBytes: cfg.MaxSizeBytes,
		maxPixels:    cfg.MaxPixels,
		maxDimension: cfg.MaxDimension,
		quality:      cfg.JPEGQuality,
	}
	if s.maxSizeBytes <= 0 {
		s.maxSizeBytes = 10 * 1024 * 1024
	}
	if s.maxPixels <= 0 {
		s.maxPixels = 40_000_000
	}
	if s.maxDimension <= 0 {
		s.maxDimension = 1024
	}
	if s.quality <= 0 || s.quality > 100 {
		s.quality = 85
	}
	return s
}

// MaxSizeBytes 回傳允許的最大圖片大小
func (s *Service) MaxSizeBytes() int64 {
	return s.maxSizeBytes
}

// Normalize 驗證、縮放並重新編碼圖片為 JPEG data URL
func (s *Service) Normalize(data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	if int64(len(data)) > s.maxSizeBytes {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, len(data), s.maxSizeBytes)
	}
	if !isSupportedContentType(contentType) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	// 先只讀取標頭，像素數超過上限時不做完整解碼
	header, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}
	if !isSupportedFormat(format) {
		return "", fmt.Errorf("%w: format %s", ErrUnsupportedType, format)
	}
	if header.Width <= 0 || header.Height <= 0 {
		return "", fmt.Errorf("%w: %dx%d", ErrUndecodableImage, header.Width, header.Height)
	}
	if int64(header.Width)*int64(header.Height) > s.maxPixels {
		return "", fmt.Errorf("%w: %dx%d, limit %d pixels", ErrImageDimensions, header.Width, header.Height, s.maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}

	img = s.resize(img)

	// 將圖片轉換為 JPEG 格式
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return "", fmt.Errorf("failed to encode image as JPEG: %w", err)
	}

	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// resize 等比例縮小超過上限的圖片
func (s *Service) resize(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= s.maxDimension && h <= s.maxDimension {
		return img
	}

	nw, nh := s.maxDimension, s.maxDimension
	if w >= h {
		nh = max(1, h*s.maxDimension/w)
	} else {
		nw = max(1, w*s.maxDimension/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// isSupportedContentType 空值或 octet-stream 交由解碼判斷
func isSupportedContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct == "" || ct == "application/octet-stream" || strings.HasPrefix(ct, "image/")
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	switch format {
	case "jpeg", "png", "gif", "webp":
		return true
	}
	return false
}
