package notify

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const qrImageSize = 300

// QRRenderer renders a pass token into a scannable PNG.
type QRRenderer struct {
	size int
}

func NewQRRenderer() *QRRenderer {
	return &QRRenderer{size: qrImageSize}
}

func (r *QRRenderer) Render(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, r.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
