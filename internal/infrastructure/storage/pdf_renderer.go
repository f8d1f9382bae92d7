package storage

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/png" // register PNG decoder for DecodeConfig
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
)

var ErrEmptyLabel = errors.New("empty label image")

// Ensure PDFRenderer implements supply.LabelRenderer
var _ supply.LabelRenderer = PDFRenderer{}

// PDFRenderer wraps a PNG label into a single-page PDF sized to the image,
// one point per pixel.
type PDFRenderer struct{}

// Render decodes a base64 PNG and returns the PDF document bytes.
func (PDFRenderer) Render(imageBase64 string) ([]byte, error) {
	raw := strings.TrimSpace(imageBase64)
	if i := strings.Index(raw, ","); strings.HasPrefix(raw, "data:") && i >= 0 {
		raw = raw[i+1:]
	}
	if raw == "" {
		return nil, ErrEmptyLabel
	}

	img, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode label image: %w", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("read label image: %w", err)
	}
	if format != "png" {
		return nil, fmt.Errorf("unsupported label image format %q", format)
	}

	w, h := float64(cfg.Width), float64(cfg.Height)
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("label", opts, bytes.NewReader(img))
	pdf.ImageOptions("label", 0, 0, w, h, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("render label pdf: %w", err)
	}
	return out.Bytes(), nil
}
