package acquisition

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// QRDecoder decodes QR symbols with gozxing.
//
// Thread Safety: safe for concurrent use; decodes are serialised.
type QRDecoder struct {
	mu     sync.Mutex
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

// NewQRDecoder creates a decoder that tries harder on low-contrast frames.
func NewQRDecoder() *QRDecoder {
	return &QRDecoder{
		reader: qrcode.NewQRCodeReader(),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Decode returns the text of the first QR symbol found in img.
// A frame with no symbol, or one that fails checksum or format checks,
// is reported as ok=false with no error.
func (d *QRDecoder) Decode(img image.Image) (string, bool, error) {
	if img == nil {
		return "", false, nil
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false, fmt.Errorf("binarising image: %w", err)
	}

	d.mu.Lock()
	result, err := d.reader.Decode(bmp, d.hints)
	d.reader.Reset()
	d.mu.Unlock()

	if err != nil {
		var readerErr gozxing.ReaderException
		if errors.As(err, &readerErr) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("decoding QR symbol: %w", err)
	}
	return result.GetText(), true, nil
}
