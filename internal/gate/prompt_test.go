package gate

import (
	"strings"
	"testing"
)

func TestNormalizePrompt(t *testing.T) {
	if got := NormalizePrompt("  Pixel CAT  "); got != "pixel cat" {
		t.Fatalf("expected %q, got %q", "pixel cat", got)
	}
}

func TestValidatePrompt_RejectsEmpty(t *testing.T) {
	if err := ValidatePrompt("   "); err == nil {
		t.Fatalf("expected error for whitespace-only prompt")
	}
}

func TestValidatePrompt_RejectsMarkupOnly(t *testing.T) {
	for _, prompt := range []string{"<b></b>", "<div><i></i></div>", `""''`} {
		if err := ValidatePrompt(prompt); err == nil {
			t.Fatalf("expected %q to be rejected, sanitizes to nothing", prompt)
		}
	}

	if err := ValidatePrompt("<b>pixel cat</b>"); err != nil {
		t.Fatalf("expected markup around real text to pass, got %v", err)
	}
}

func TestValidatePrompt_RejectsTooLong(t *testing.T) {
	if err := ValidatePrompt(strings.Repeat("a", MaxPromptLength+1)); err == nil {
		t.Fatalf("expected error for oversized prompt")
	}
	if err := ValidatePrompt(strings.Repeat("a", MaxPromptLength)); err != nil {
		t.Fatalf("expected prompt at the limit to pass, got %v", err)
	}
}

func TestValidatePrompt_DenyList(t *testing.T) {
	bad := []string{
		"<script>alert(1)</script>",
		"a cat javascript:alert(1)",
		"hello onload=evil",
		"eval(document.title)",
		"steal document.cookie now",
		"inject ${secret}",
		"render {{config}}",
	}
	for _, prompt := range bad {
		if err := ValidatePrompt(prompt); err == nil {
			t.Fatalf("expected %q to be rejected", prompt)
		}
	}

	if err := ValidatePrompt("a pixel cat on a rooftop"); err != nil {
		t.Fatalf("expected clean prompt to pass, got %v", err)
	}
}

func TestSanitizePrompt(t *testing.T) {
	got := SanitizePrompt(`a <b>"pixel"</b> 'cat'`)
	if got != "a pixel cat" {
		t.Fatalf("expected %q, got %q", "a pixel cat", got)
	}
}
