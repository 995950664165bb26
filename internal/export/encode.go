package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"
)

// Format of an encoded page.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
)

// Ext returns the file extension used for the format.
func (f Format) Ext() string {
	if f == JPEG {
		return "jpg"
	}
	return "png"
}

// MIME returns the media type of the format.
func (f Format) MIME() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Encoder turns a raster into bytes. quality in (0,1] is ignored by
// lossless formats.
type Encoder interface {
	Encode(img image.Image, f Format, quality float64) ([]byte, error)
}

// StdEncoder encodes with image/png and image/jpeg.
type StdEncoder struct {
	png png.Encoder
}

func NewStdEncoder() *StdEncoder {
	return &StdEncoder{png: png.Encoder{CompressionLevel: png.DefaultCompression}}
}

func (e *StdEncoder) Encode(img image.Image, f Format, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	switch f {
	case JPEG:
		q := int(quality*100 + 0.5)
		q = max(1, min(q, 100))
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("jpeg: %w", err)
		}
	case PNG:
		if err := e.png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("png: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
	return buf.Bytes(), nil
}

// Encoded is one encoded page.
type Encoded struct {
	Format   Format
	Quality  float64 // 0 for lossless
	Data     []byte
	Attempts int
}

// DataURI returns the payload as a base64 data URI.
func (e Encoded) DataURI() string {
	return "data:" + e.Format.MIME() + ";base64," + base64.StdEncoding.EncodeToString(e.Data)
}

// DataURIBytes estimates the decoded size of a base64 data URI from its
// length and padding, without decoding it.
func DataURIBytes(uri string) int {
	b64 := uri
	if i := strings.IndexByte(uri, ','); i >= 0 {
		b64 = uri[i+1:]
	}
	pad := 0
	switch {
	case strings.HasSuffix(b64, "=="):
		pad = 2
	case strings.HasSuffix(b64, "="):
		pad = 1
	}
	return len(b64)*3/4 - pad
}

// Size-budgeted JPEG search. Qualities are kept in hundredths so the loop
// runs over exact integers: 72, 67, 62, 57, 52.
const (
	MaxPageBytes   = 1_000_000
	startQuality   = 72
	qualityStep    = 5
	qualityFloor   = 50
	MaxEncodeTries = (startQuality-qualityFloor)/qualityStep + 1
)

// EncodeBudgeted encodes img as JPEG, lowering the quality until the size
// estimated from its data URI fits maxBytes or the next step would go below the floor. An oversized
// result at the floor is returned as is; it is not an error.
func EncodeBudgeted(enc Encoder, img image.Image, maxBytes int) (Encoded, error) {
	if maxBytes <= 0 {
		maxBytes = MaxPageBytes
	}
	q := startQuality
	for attempt := 1; ; attempt++ {
		data, err := enc.Encode(img, JPEG, float64(q)/100)
		if err != nil {
			return Encoded{}, err
		}
		e := Encoded{Format: JPEG, Quality: float64(q) / 100, Data: data, Attempts: attempt}
		if DataURIBytes(e.DataURI()) <= maxBytes || q-qualityStep < qualityFloor || attempt >= MaxEncodeTries {
			return e, nil
		}
		q -= qualityStep
	}
}

// EncodeLossless encodes img as PNG.
func EncodeLossless(enc Encoder, img image.Image) (Encoded, error) {
	data, err := enc.Encode(img, PNG, 0)
	if err != nil {
		return Encoded{}, err
	}
	return Encoded{Format: PNG, Data: data, Attempts: 1}, nil
}
