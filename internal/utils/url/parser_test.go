package urlutil

import "testing"

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://www.leboncoin.fr/ad/ventes_immobilieres/123456",
		"http://www.seloger.com/annonces/achat/maison/75.htm",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Errorf("expected %q to be valid, got %v", u, err)
		}
	}

	invalid := []string{
		"",
		"not a url",
		"ftp://example.com/file",
		"/ad/ventes_immobilieres/123456",
	}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Errorf("expected %q to be rejected", u)
		}
	}
}

func TestResolveURL(t *testing.T) {
	base := "https://www.seloger.com/annonces/achat/maison/75.htm"

	if got := ResolveURL(base, "https://cdn.seloger.com/photo.jpg"); got != "https://cdn.seloger.com/photo.jpg" {
		t.Errorf("absolute href must pass through, got %q", got)
	}
	if got := ResolveURL(base, "/photos/1.jpg"); got != "https://www.seloger.com/photos/1.jpg" {
		t.Errorf("unexpected resolution: %q", got)
	}
}
