package linkurl

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	const site = "http://site/"

	tests := []struct {
		name     string
		href     string
		page     string
		expected string
	}{
		{"absolute http", "http://x.com/a", "http://site/p", "http://x.com/a"},
		{"absolute https", "https://x.com/a", "http://site/p", "https://x.com/a"},
		{"mailto", "mailto:a@b.com", "http://site/p", "mailto:a@b.com"},
		{"other scheme", "javascript:void(0)", "http://site/p", "javascript:void(0)"},
		{"dot slash", "./c.html", "http://site/p/", "http://site/c.html"},
		{"root relative", "/d.html", "http://site/p/", "http://site/d.html"},
		{"parent relative", "../e.html", "http://site/p/q/", "http://site/p/e.html"},
		{"parent relative above root", "../outside", "http://site/", "http://site/outside"},
		{"bare relative", "f.html", "http://site/p/", "http://site/f.html"},
		{"protocol relative", "//cdn.example.com/x.js", "http://site/p/", "http://cdn.example.com/x.js"},
		{"fragment kept", "g.html#top", "http://site/", "http://site/g.html#top"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.href, tt.page, site)
			if got != tt.expected {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.href, tt.page, got, tt.expected)
			}
		})
	}
}

func TestResolveStrict(t *testing.T) {
	r := Resolver{Strict: true}
	const site = "http://site/"

	tests := []struct {
		href     string
		page     string
		expected string
	}{
		{"./c.html", "http://site/p/", "http://site/p/c.html"},
		{"/d.html", "http://site/p/", "http://site/d.html"},
		{"f.html", "http://site/p/index.html", "http://site/p/f.html"},
		{"../e.html", "http://site/p/q/", "http://site/p/e.html"},
		{"mailto:a@b.com", "http://site/p/", "mailto:a@b.com"},
		{"https://x.com/a", "http://site/p/", "https://x.com/a"},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			got := r.Resolve(tt.href, tt.page, site)
			if got != tt.expected {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.href, tt.page, got, tt.expected)
			}
		})
	}
}

func TestResolveSchemeFromSite(t *testing.T) {
	got := Resolve("//cdn.example.com/a", "https://site/", "https://site/")
	if got != "https://cdn.example.com/a" {
		t.Errorf("Expected https scheme to be inherited, got %q", got)
	}
}

func TestToSiteRelative(t *testing.T) {
	const site = "http://site/ls3/"

	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"empty", "", "", false},
		{"parent relative", "../x.html", "", false},
		{"dot slash", "./x.html", "/x.html", true},
		{"root relative", "/x.html", "/x.html", true},
		{"on site", "http://site/ls3/a/b.html", "/a/b.html", true},
		{"site root", "http://site/ls3/", "/", true},
		{"off site", "http://other/ls3/a.html", "", false},
		{"above site base", "http://site/a.html", "", false},
		{"mailto", "mailto:a@b.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToSiteRelative(tt.input, site)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ToSiteRelative(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSiteBase(t *testing.T) {
	tests := []struct {
		seed string
		want string
	}{
		{"http://example.com", "http://example.com/"},
		{"http://example.com/", "http://example.com/"},
		{"http://example.com/a/b.html", "http://example.com/a/"},
		{"http://example.com/~martin/sewn/ls3/", "http://example.com/~martin/sewn/ls3/"},
		{"https://example.com/a/?q=1#frag", "https://example.com/a/"},
	}

	for _, tt := range tests {
		t.Run(tt.seed, func(t *testing.T) {
			got, err := SiteBase(tt.seed)
			if err != nil {
				t.Fatalf("SiteBase(%q) returned error: %v", tt.seed, err)
			}
			if got != tt.want {
				t.Errorf("SiteBase(%q) = %q, want %q", tt.seed, got, tt.want)
			}
		})
	}
}

func TestSiteBaseRejectsRelative(t *testing.T) {
	_, err := SiteBase("/just/a/path")
	if !errors.Is(err, ErrNotAbsolute) {
		t.Errorf("Expected ErrNotAbsolute, got %v", err)
	}
}

func TestIsMailto(t *testing.T) {
	if !IsMailto("mailto:x@y.com") || !IsMailto("MAILTO:x@y.com") {
		t.Errorf("Expected mailto links to be detected")
	}
	if IsMailto("http://site/mailto:x") || IsMailto("mail") {
		t.Errorf("Expected non-mailto links to be rejected")
	}
}

func TestHasScheme(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"http://a", true},
		{"mailto:x@y", true},
		{"svn+ssh://host", true},
		{"./a", false},
		{"../a", false},
		{"/a", false},
		{"a.html", false},
		{"a.html?x=1:2", false},
		{"1http://a", false},
		{":nothing", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := hasScheme(tt.input); got != tt.expected {
			t.Errorf("hasScheme(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
