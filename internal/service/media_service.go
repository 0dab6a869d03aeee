package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"net/http"
	"strings"

	_ "image/gif" // Register GIF decoder
	_ "image/png" // Register PNG decoder

	"mosaic/internal/config"
	"mosaic/internal/media"
	"mosaic/internal/middleware"
	"mosaic/internal/models"
	"mosaic/internal/observability"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMaxUploadSizeMB = 10
	MasterMaxSize          = 2048
	AvatarSize             = 512
	JPEGQuality            = 82
	WebPQuality            = 70
)

// Storage folders.
const (
	FolderPosts   = "posts"
	FolderAvatars = "avatars"
)

// StoredMedia describes the objects written for one upload.
type StoredMedia struct {
	URL         string
	WebPURL     string
	Key         string
	WebPKey     string
	ContentType string
}

// Keys lists every object key written for the upload.
func (m *StoredMedia) Keys() []string {
	keys := []string{m.Key}
	if m.WebPKey != "" {
		keys = append(keys, m.WebPKey)
	}
	return keys
}

// MediaService validates uploads, normalizes images and hands the results
// to a media.Store.
type MediaService struct {
	store          media.Store
	maxUploadBytes int64
}

func NewMediaService(store media.Store, cfg *config.Config) *MediaService {
	maxBytes := int64(DefaultMaxUploadSizeMB) * 1024 * 1024
	if cfg != nil && cfg.MaxUploadBytes() > 0 {
		maxBytes = cfg.MaxUploadBytes()
	}
	return &MediaService{store: store, maxUploadBytes: maxBytes}
}

// StorePostMedia stores a post image (as JPEG plus a WebP variant) or a
// video as uploaded.
func (s *MediaService) StorePostMedia(ctx context.Context, ownerID uint, content []byte) (*StoredMedia, error) {
	detected, err := s.check(content)
	if err != nil {
		return nil, err
	}
	hash := objectName(ownerID, content)

	if ext, ok := videoExtension(detected); ok {
		key := objectKey(FolderPosts, hash, ext)
		url, err := s.put(ctx, key, detected, content, "video")
		if err != nil {
			return nil, err
		}
		return &StoredMedia{URL: url, Key: key, ContentType: detected}, nil
	}

	img, err := decodeImage(content)
	if err != nil {
		return nil, err
	}
	return s.storeImage(ctx, FolderPosts, hash, resizeToFit(img, MasterMaxSize, MasterMaxSize), "image")
}

// StoreAvatar center-crops an image to a square of at most AvatarSize pixels.
func (s *MediaService) StoreAvatar(ctx context.Context, ownerID uint, content []byte) (*StoredMedia, error) {
	detected, err := s.check(content)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(detected, "image/") {
		return nil, models.NewValidationError("Profile picture must be an image")
	}

	img, err := decodeImage(content)
	if err != nil {
		return nil, err
	}
	square := resizeToFit(cropSquare(img), AvatarSize, AvatarSize)
	return s.storeImage(ctx, FolderAvatars, objectName(ownerID, content), square, "avatar")
}

// Remove deletes stored objects best-effort; failures are only logged.
func (s *MediaService) Remove(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.store.Remove(ctx, key); err != nil {
			middleware.Logger.WarnContext(ctx, "media cleanup failed", "key", key, "error", err)
		}
	}
}

func (s *MediaService) check(content []byte) (string, error) {
	if len(content) == 0 {
		return "", models.NewMediaRequiredError("Media file is required")
	}
	if int64(len(content)) > s.maxUploadBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadBytes/(1024*1024)))
	}
	detected := sniffContentType(content)
	if !isAllowedMediaType(detected) {
		return "", models.NewValidationError("Unsupported media type")
	}
	return detected, nil
}

func (s *MediaService) storeImage(ctx context.Context, folder, hash string, img image.Image, kind string) (*StoredMedia, error) {
	jpg, err := encodeJPEG(img, JPEGQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	wp, err := encodeWebP(img, WebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	out := &StoredMedia{
		Key:         objectKey(folder, hash, "jpg"),
		WebPKey:     objectKey(folder, hash, "webp"),
		ContentType: "image/jpeg",
	}
	if out.URL, err = s.put(ctx, out.Key, "image/jpeg", jpg, kind); err != nil {
		return nil, err
	}
	if out.WebPURL, err = s.put(ctx, out.WebPKey, "image/webp", wp, kind); err != nil {
		s.Remove(ctx, out.Key)
		return nil, err
	}
	return out, nil
}

func (s *MediaService) put(ctx context.Context, key, contentType string, data []byte, kind string) (string, error) {
	url, err := s.store.Put(ctx, key, contentType, data)
	if err != nil {
		return "", models.NewInternalError(fmt.Errorf("store %s: %w", key, err))
	}
	if url == "" {
		return "", models.NewMediaRequiredError("Media upload failed")
	}
	observability.MediaUploadBytes.WithLabelValues(kind).Observe(float64(len(data)))
	return url, nil
}

// sniffContentType detects the type from the bytes. QuickTime is checked by
// hand because net/http does not recognize it.
func sniffContentType(content []byte) string {
	if len(content) >= 12 && string(content[4:8]) == "ftyp" && string(content[8:12]) == "qt  " {
		return "video/quicktime"
	}
	return normalizeContentType(http.DetectContentType(content))
}

func isAllowedMediaType(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp",
		"video/mp4", "video/webm", "video/quicktime":
		return true
	default:
		return false
	}
}

func videoExtension(contentType string) (string, bool) {
	switch contentType {
	case "video/mp4":
		return "mp4", true
	case "video/webm":
		return "webm", true
	case "video/quicktime":
		return "mov", true
	default:
		return "", false
	}
}

func decodeImage(content []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	return img, nil
}

func contentHash(ownerID uint, content []byte) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%d:", ownerID)
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// objectName is unique per upload: the same file uploaded twice gets two
// objects, so removing one never breaks the other's URL.
func objectName(ownerID uint, content []byte) string {
	return contentHash(ownerID, content)[:16] + "-" + uuid.NewString()
}

func objectKey(folder, hash, ext string) string {
	return fmt.Sprintf("%s/%s.%s", folder, hash, ext)
}

func cropSquare(src image.Image) image.Image {
	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	if side <= 0 || (b.Dx() == side && b.Dy() == side) {
		return src
	}
	x := b.Min.X + (b.Dx()-side)/2
	y := b.Min.Y + (b.Dy()-side)/2
	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, draw.Src)
	return dst
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func normalizeContentType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}
