package acquisition

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	qrgen "github.com/skip2/go-qrcode"
)

const testPayload = `{"coordinates":[{"x":100,"y":100,"action":"click","delay":0.1}]}`

func writeQRFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "code.png")
	if err := qrgen.WriteFile(content, qrgen.Medium, 256, path); err != nil {
		t.Fatalf("generating QR image: %v", err)
	}
	return path
}

func TestQRDecoder_RoundTrip(t *testing.T) {
	q, err := qrgen.New(testPayload, qrgen.Medium)
	if err != nil {
		t.Fatalf("qrgen.New() error = %v", err)
	}

	text, ok, err := NewQRDecoder().Decode(q.Image(256))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !ok {
		t.Fatal("Decode() found no symbol in a generated QR image")
	}
	if text != testPayload {
		t.Errorf("Decode() = %q, want %q", text, testPayload)
	}
}

func TestQRDecoder_BlankImageIsMiss(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range blank.Pix {
		blank.Pix[i] = 0xff
	}

	_, ok, err := NewQRDecoder().Decode(blank)
	if err != nil {
		t.Fatalf("Decode() error = %v, want a plain miss", err)
	}
	if ok {
		t.Error("Decode() reported a symbol in a blank image")
	}
}

func TestImageScanner_Scan(t *testing.T) {
	path := writeQRFile(t, testPayload)
	scanner := NewImageScanner(NewQRDecoder(), nil)

	text, err := scanner.Scan(context.Background(), path)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if text != testPayload {
		t.Errorf("Scan() = %q, want %q", text, testPayload)
	}
}

func TestImageScanner_NotAcquired(t *testing.T) {
	dir := t.TempDir()

	blankPath := filepath.Join(dir, "blank.png")
	f, err := os.Create(blankPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 32, 32))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	textPath := filepath.Join(dir, "notes.png")
	if err := os.WriteFile(textPath, []byte("not an image"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		decoder SymbolDecoder
	}{
		{"missing file", filepath.Join(dir, "nope.png"), NewQRDecoder()},
		{"not an image", textPath, NewQRDecoder()},
		{"no symbol", blankPath, NewQRDecoder()},
		{"decoder error", blankPath, &mockDecoder{err: errors.New("decoder crashed")}},
		{"decoder panic", blankPath, &mockDecoder{panicMsg: "nil map"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := NewImageScanner(tt.decoder, nil).Scan(context.Background(), tt.path)
			if !errors.Is(err, ErrNotAcquired) {
				t.Errorf("Scan() error = %v, want ErrNotAcquired", err)
			}
			if text != "" {
				t.Errorf("Scan() = %q, want empty", text)
			}
		})
	}
}
