package enums

import "testing"

func TestParseRarity(t *testing.T) {
	for _, value := range []string{"common", "rare", "epic", "legendary", "mythic"} {
		got, err := ParseRarity(value)
		if err != nil {
			t.Fatalf("ParseRarity(%q): %v", value, err)
		}
		if got.String() != value || !got.IsValid() {
			t.Fatalf("unexpected rarity %q", got)
		}
	}
	for _, value := range []string{"", "Rare", "ultra", " common"} {
		if _, err := ParseRarity(value); err == nil {
			t.Fatalf("expected %q to be rejected", value)
		}
	}
	if len(Rarities()) != 5 {
		t.Fatalf("expected 5 rarities")
	}
}

func TestParseMediaType(t *testing.T) {
	if got, err := ParseMediaType("video"); err != nil || got != MediaTypeVideo {
		t.Fatalf("expected video, got %q err=%v", got, err)
	}
	if _, err := ParseMediaType("audio"); err == nil {
		t.Fatal("expected audio to be rejected")
	}
	if MediaType("gif").IsValid() {
		t.Fatal("gif is not a media type")
	}
}

func TestMediaTypeFromMIME(t *testing.T) {
	cases := map[string]MediaType{
		"image/png":       MediaTypeImage,
		"IMAGE/WEBP":      MediaTypeImage,
		"video/quicktime": MediaTypeVideo,
	}
	for mime, want := range cases {
		got, ok := MediaTypeFromMIME(mime)
		if !ok || got != want {
			t.Fatalf("MediaTypeFromMIME(%q) = %q, %v", mime, got, ok)
		}
	}
	if _, ok := MediaTypeFromMIME("application/pdf"); ok {
		t.Fatal("pdf should not map to a media type")
	}
}

func TestIconRegistry(t *testing.T) {
	names := IconNames()
	if len(names) != 15 || names[0] != IconPackage || names[14] != IconShield {
		t.Fatalf("unexpected registry %v", names)
	}
	if _, err := ParseIconName("Skull"); err == nil {
		t.Fatal("expected unknown icon to be rejected")
	}
	if got, err := ParseIconName("Trophy"); err != nil || got != IconTrophy {
		t.Fatalf("expected Trophy, got %q err=%v", got, err)
	}
	names[0] = "mutated"
	if IconNames()[0] != IconPackage {
		t.Fatal("IconNames must return a copy")
	}
}
