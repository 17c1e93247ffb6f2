package extraction

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"io"
	"mime/multipart"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// maxImageDimension bounds the longest side of the image sent to the model.
// Phone photos routinely exceed 4000px and only slow the model call down.
const maxImageDimension = 2048

// ImageInput is a raw image plus its MIME type, ready for extraction.
type ImageInput struct {
	Data        []byte
	ContentType string
}

// NewImageInput normalizes the supported image sources into an ImageInput.
// Accepted sources: raw []byte, any io.Reader, or a *multipart.FileHeader
// from a parsed form. contentType may be empty for a FileHeader, in which
// case the part's own Content-Type header is used.
func NewImageInput(src any, contentType string) (ImageInput, error) {
	switch v := src.(type) {
	case []byte:
		return ImageInput{Data: v, ContentType: contentType}, nil
	case *multipart.FileHeader:
		f, err := v.Open()
		if err != nil {
			return ImageInput{}, fmt.Errorf("opening form file: %w", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return ImageInput{}, fmt.Errorf("reading form file: %w", err)
		}
		if contentType == "" {
			contentType = v.Header.Get("Content-Type")
		}
		return ImageInput{Data: data, ContentType: contentType}, nil
	case io.Reader:
		data, err := io.ReadAll(v)
		if err != nil {
			return ImageInput{}, fmt.Errorf("reading image stream: %w", err)
		}
		return ImageInput{Data: data, ContentType: contentType}, nil
	default:
		return ImageInput{}, fmt.Errorf("unsupported image source type %T", src)
	}
}

// png decodes the input, downscales oversized photos, and re-encodes as PNG
// so a single format reaches the model regardless of what was uploaded.
func (in ImageInput) png() ([]byte, error) {
	mimeType := strings.ToLower(strings.TrimSpace(in.ContentType))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	img, err := decodeImage(in.Data, mimeType)
	if err != nil {
		return nil, err
	}

	if b := img.Bounds(); b.Dx() > maxImageDimension || b.Dy() > maxImageDimension {
		img = imaging.Fit(img, maxImageDimension, maxImageDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeImage(data []byte, mimeType string) (image.Image, error) {
	switch {
	case mimeType == "application/pdf":
		return decodePDF(data)
	case isHEICFormat(data) || isHEICMimeType(mimeType):
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding image (supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF): %w", err)
		}
		return img, nil
	}
}

// decodePDF renders the first page; fillup receipts are single-page.
func decodePDF(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// isHEICFormat checks the ftyp box brands that mark HEIC/HEIF containers,
// since Go's standard image package cannot sniff them.
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
