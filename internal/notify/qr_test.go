package notify

import (
	"bytes"
	"testing"
)

func TestQRRenderer_Render(t *testing.T) {
	t.Parallel()

	png, err := NewQRRenderer().Render("4f1c2a7d9b")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("expected a PNG image, got %d bytes", len(png))
	}
}
