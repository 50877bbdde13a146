// Package qrscan locates and decodes QR payloads in already-loaded raster
// images. Phone photos and low-resolution screenshots frequently fail to
// decode as-is, so the decoder trades CPU for recall: each candidate scale
// is tried with several luminance variants until one succeeds or all are
// exhausted. File I/O and image format sniffing are the caller's problem;
// the contract starts at an image.Image.
package qrscan

import (
	"errors"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	xdraw "golang.org/x/image/draw"
)

// upscaleThreshold is the dimension below which upscaled attempts are added.
// Small rendered QR images usually need 2-3x before the finder patterns
// register.
const upscaleThreshold = 300

var (
	// ErrNotFound reports that no QR symbol was found after exhausting all
	// scale/variant attempts. This is a normal outcome, not a fault.
	ErrNotFound = errors.New("no qr code found in image")

	// ErrInvalidImage reports an image with non-positive dimensions.
	ErrInvalidImage = errors.New("invalid image dimensions")
)

// Decoder decodes QR symbols from raster images. It holds only immutable
// decode hints, so a single Decoder is safe to share; each call works on
// its own buffers and never mutates the input image.
type Decoder struct {
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

// New returns a Decoder restricted to QR symbology with robust-mode
// ("try harder") decoding enabled.
func New() *Decoder {
	return &Decoder{
		reader: qrcode.NewQRCodeReader(),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
			gozxing.DecodeHintType_POSSIBLE_FORMATS: []gozxing.BarcodeFormat{
				gozxing.BarcodeFormat_QR_CODE,
			},
		},
	}
}

// Decode scans img for a QR symbol and returns its text payload.
//
// Images with either dimension under 300px are retried at 3x, 2x and 1x
// (in that order, nearest-neighbor resampling); larger images only at 1x.
// At each scale four luminance variants are attempted in fixed order:
// direct RGB, inverted RGB, weighted manual grayscale, inverted grayscale.
// The first successful attempt wins, keeping results deterministic.
//
// Returns ErrNotFound when every attempt reports the symbol absent or
// unreadable, ErrInvalidImage for degenerate input, and a wrapped decoder
// fault for any other underlying failure.
func (d *Decoder) Decode(img image.Image) (string, error) {
	if img == nil {
		return "", ErrInvalidImage
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w <= 0 || h <= 0 {
		return "", ErrInvalidImage
	}

	scales := []int{1}
	if w < upscaleThreshold || h < upscaleThreshold {
		scales = []int{3, 2, 1}
	}

	for _, scale := range scales {
		rgba := normalize(img, scale)
		gray := grayscale(rgba)
		direct := gozxing.NewLuminanceSourceFromImage(rgba)
		weighted := gozxing.NewLuminanceSourceFromImage(gray)
		sources := []gozxing.LuminanceSource{
			direct,
			direct.Invert(),
			weighted,
			weighted.Invert(),
		}
		for _, src := range sources {
			text, err := d.attempt(src)
			if err == nil {
				return text, nil
			}
			var re gozxing.ReaderException
			if errors.As(err, &re) {
				continue // symbol absent or unreadable in this variant
			}
			return "", fmt.Errorf("qr decode at %dx: %w", scale, err)
		}
	}
	return "", ErrNotFound
}

// attempt runs one binarize-and-decode pass over a luminance source.
func (d *Decoder) attempt(src gozxing.LuminanceSource) (string, error) {
	bmp, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(src))
	if err != nil {
		return "", err
	}
	result, err := d.reader.Decode(bmp, d.hints)
	if err != nil {
		return "", err
	}
	return result.GetText(), nil
}

// normalize copies img into an interleaved RGBA buffer at the given integer
// scale, resampling nearest-neighbor with pixel-center sampling.
func normalize(img image.Image, scale int) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// grayscale converts an RGBA buffer using the integer-approximated ITU-R
// BT.601 luminance weights R*0.299 + G*0.587 + B*0.114.
func grayscale(src *image.RGBA) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		si := src.PixOffset(b.Min.X, y)
		di := dst.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			r := uint32(src.Pix[si])
			g := uint32(src.Pix[si+1])
			bl := uint32(src.Pix[si+2])
			dst.Pix[di] = uint8((299*r + 587*g + 114*bl) / 1000)
			si += 4
			di++
		}
	}
	return dst
}
