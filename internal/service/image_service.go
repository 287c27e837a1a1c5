package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/marinaua13/social-media-api/internal/config"
	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/validation"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageUploadDir       = "uploads"
	DefaultImageMaxUploadSizeMB = 10
	MaxImageSide                = 1920
	WebPQuality                 = 80
)

// Upload folders under the upload dir.
const (
	FolderPostPictures = "post_pics"
)

type StoreImageInput struct {
	Folder      string
	NamePrefix  string
	ContentType string
	Content     []byte
}

// ImageService validates uploaded images, re-encodes them as WebP and writes them under
// the upload dir, served back at the media URL.
type ImageService struct {
	uploadDir          string
	mediaURL           string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	uploadDir := DefaultImageUploadDir
	mediaURL := "/media"
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.UploadDir != "" {
			uploadDir = cfg.UploadDir
		}
		if cfg.MediaURL != "" {
			mediaURL = cfg.MediaURL
		}
		if cfg.MaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.MaxUploadSizeMB
		}
	}

	return &ImageService{
		uploadDir:          uploadDir,
		mediaURL:           mediaURL,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

func (s *ImageService) UploadDir() string { return s.uploadDir }

// MediaURL is the public path prefix the upload dir is served under.
func (s *ImageService) MediaURL() string { return s.mediaURL }

func (s *ImageService) MaxUploadSizeBytes() int64 { return s.maxUploadSizeBytes }

// Store writes the image and returns its public URL. The bytes must decode as
// one of imageFormats, and a declared image/* content type must agree with them.
func (s *ImageService) Store(_ context.Context, in StoreImageInput) (string, error) {
	if len(in.Content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}
	if _, ok := mimeFormats[mediaType(http.DetectContentType(in.Content))]; !ok {
		return "", models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	if _, ok := imageFormats[format]; !ok {
		return "", models.NewValidationError("Unsupported image format")
	}
	if declared := mediaType(in.ContentType); strings.HasPrefix(declared, "image/") && mimeFormats[declared] != format {
		return "", models.NewValidationError("Image content type mismatch")
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, shrinkToFit(decoded, MaxImageSide), &webp.Options{Quality: WebPQuality}); err != nil {
		return "", models.NewInternalError(err)
	}

	name := validation.Slugify(in.NamePrefix) + "-" + uuid.NewString() + ".webp"
	if err := writeFileAtomic(filepath.Join(s.uploadDir, in.Folder, name), buf.Bytes()); err != nil {
		return "", models.NewInternalError(err)
	}
	return path.Join(s.mediaURL, in.Folder, name), nil
}

// Remove deletes the file behind a URL returned by Store. Unknown URLs are ignored.
func (s *ImageService) Remove(url string) {
	rel, ok := strings.CutPrefix(url, s.mediaURL+"/")
	if !ok || rel == "" || strings.Contains(rel, "..") {
		return
	}
	_ = os.Remove(filepath.Join(s.uploadDir, filepath.FromSlash(rel)))
}

// imageFormats maps image.Decode format names to their MIME type.
var imageFormats = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// mimeFormats is the inverse of imageFormats, plus the common image/jpg alias.
var mimeFormats = map[string]string{
	"image/jpeg": "jpeg",
	"image/jpg":  "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

func mediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	return strings.ToLower(contentType)
}

// shrinkToFit scales src down so neither side exceeds side, keeping the aspect
// ratio. Smaller images are returned untouched.
func shrinkToFit(src image.Image, side int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= side && h <= side {
		return src
	}
	scale := min(float64(side)/float64(w), float64(side)/float64(h))
	dst := image.NewRGBA(image.Rect(0, 0, max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

// writeFileAtomic writes through a temp file in the target directory so a
// reader never sees a half-written image.
func writeFileAtomic(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
