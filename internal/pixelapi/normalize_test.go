package pixelapi

import (
	"errors"
	"testing"
)

func TestNormalize_Base64ListBecomesDataURL(t *testing.T) {
	out, err := normalize([]byte(`{"base64_images":["AAAA"],"remaining_credits":42}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ImageURL != "data:image/png;base64,AAAA" {
		t.Fatalf("expected data URL, got %q", out.ImageURL)
	}
	if out.RemainingCredits != 42 {
		t.Fatalf("expected 42 remaining credits, got %d", out.RemainingCredits)
	}
}

func TestNormalize_URIListPassesThrough(t *testing.T) {
	out, err := normalize([]byte(`{"images":["https://cdn.example/img.png"]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ImageURL != "https://cdn.example/img.png" {
		t.Fatalf("expected URI passthrough, got %q", out.ImageURL)
	}
}

func TestNormalize_SingleImageField(t *testing.T) {
	out, err := normalize([]byte(`{"image":"BBBB"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ImageURL != "data:image/png;base64,BBBB" {
		t.Fatalf("expected data URL, got %q", out.ImageURL)
	}
}

func TestNormalize_PriorityOrder(t *testing.T) {
	out, err := normalize([]byte(`{"base64_images":["AAAA"],"images":["https://cdn.example/x.png"],"image":"BBBB"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ImageURL != "data:image/png;base64,AAAA" {
		t.Fatalf("expected base64 list to win, got %q", out.ImageURL)
	}
}

func TestNormalize_UnrecognizedShapeFailsLoudly(t *testing.T) {
	cases := [][]byte{
		[]byte(`{}`),
		[]byte(`{"base64_images":[]}`),
		[]byte(`{"result":"ok"}`),
		[]byte(`not json`),
	}
	for _, raw := range cases {
		if _, err := normalize(raw); !errors.Is(err, ErrInvalidResponse) {
			t.Fatalf("expected ErrInvalidResponse for %s, got %v", raw, err)
		}
	}
}
