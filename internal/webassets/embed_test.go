package webassets

import (
	"io/fs"
	"strings"
	"testing"
)

func TestSiteFS_HasIndex(t *testing.T) {
	b, err := fs.ReadFile(SiteFS(), "index.html")
	if err != nil {
		t.Fatalf("index.html: %v", err)
	}
	body := string(b)
	for _, want := range []string{"POST /items", "X-Request-Id", "X-Response-Time-ms"} {
		if !strings.Contains(body, want) {
			t.Errorf("index.html missing %q", want)
		}
	}
}

func TestSiteFS_StylesheetReferencedAndPresent(t *testing.T) {
	fsys := SiteFS()
	idx, _ := fs.ReadFile(fsys, "index.html")
	if !strings.Contains(string(idx), `href="/assets/style.css"`) {
		t.Fatal("index.html should link the stylesheet")
	}
	if _, err := fs.Stat(fsys, "style.css"); err != nil {
		t.Fatalf("style.css: %v", err)
	}
}

func TestSiteFS_NoInlineScript(t *testing.T) {
	idx, _ := fs.ReadFile(SiteFS(), "index.html")
	if strings.Contains(strings.ToLower(string(idx)), "<script") {
		t.Fatal("page must not need script-src under the CSP")
	}
}
