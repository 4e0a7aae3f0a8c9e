package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articlePage = `<!DOCTYPE html>
<html lang="en">
<head>
  <title>Widget Handbook</title>
  <meta name="description" content="All about widgets">
  <meta property="og:title" content="Widgets!">
  <script>var tracking = "script text";</script>
</head>
<body>
  <nav>Home | About | Contact</nav>
  <div class="sidebar ad-slot">Buy now, limited offer</div>
  <main>
    <h1>Widgets</h1>
    <p>Widgets are small mechanical devices.</p>
    <img src="widget.png" alt="widget picture">
    <div id="comments">First!</div>
  </main>
  <footer>Copyright</footer>
</body>
</html>`

func serve(t *testing.T, contentType string, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func requireLoadError(t *testing.T, err error) *LoadError {
	t.Helper()
	var le *LoadError
	require.Error(t, err)
	require.True(t, errors.As(err, &le), "expected LoadError, got %T: %v", err, err)
	return le
}

func TestLoadURL_CleansBoilerplate(t *testing.T) {
	srv := serve(t, "text/html; charset=utf-8", http.StatusOK, articlePage)

	loaded, err := New(Options{}).LoadURL(context.Background(), srv.URL+"/widgets")
	require.NoError(t, err)
	require.Len(t, loaded.Units, 1)
	assert.Equal(t, "html", loaded.DocumentType)

	unit := loaded.Units[0]
	assert.Contains(t, unit.Text, "Widgets are small mechanical devices.")
	assert.NotContains(t, unit.Text, "script text")
	assert.NotContains(t, unit.Text, "Home | About")
	assert.NotContains(t, unit.Text, "limited offer")
	assert.NotContains(t, unit.Text, "First!")
	assert.NotContains(t, unit.Text, "widget.png")

	assert.Equal(t, "Widget Handbook", unit.Metadata["title"])
	assert.Equal(t, "All about widgets", unit.Metadata["description"])
	assert.Equal(t, "Widgets!", unit.Metadata["og_title"])
	assert.Equal(t, "en", unit.Metadata["language"])
	assert.Equal(t, "web_content", unit.Metadata["type"])
	assert.NotContains(t, unit.Metadata, "og_description")
}

func TestLoadURL_Failures(t *testing.T) {
	t.Run("non html", func(t *testing.T) {
		srv := serve(t, "application/json", http.StatusOK, `{"a":1}`)
		_, err := New(Options{}).LoadURL(context.Background(), srv.URL)
		le := requireLoadError(t, err)
		assert.Contains(t, le.Reason, "not html")
	})

	t.Run("server error", func(t *testing.T) {
		srv := serve(t, "text/html", http.StatusInternalServerError, "boom")
		_, err := New(Options{}).LoadURL(context.Background(), srv.URL)
		le := requireLoadError(t, err)
		assert.Equal(t, "HTTP 500", le.Reason)
	})

	t.Run("too large", func(t *testing.T) {
		srv := serve(t, "text/html", http.StatusOK, "<html><body><p>"+strings.Repeat("x", 4096)+"</p></body></html>")
		_, err := New(Options{WebMaxBytes: 1024}).LoadURL(context.Background(), srv.URL)
		le := requireLoadError(t, err)
		assert.Contains(t, le.Reason, "exceeds")
	})

	t.Run("empty after cleaning", func(t *testing.T) {
		srv := serve(t, "text/html", http.StatusOK, "<html><head><script>var a = 1;</script></head><body><script>var b = 2;</script></body></html>")
		_, err := New(Options{}).LoadURL(context.Background(), srv.URL)
		requireLoadError(t, err)
	})

	for _, bad := range []string{"not a url", "ftp://example.com/file", "http://", "://missing"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := New(Options{}).LoadURL(context.Background(), bad)
			requireLoadError(t, err)
		})
	}
}

func TestWikiContentRoot(t *testing.T) {
	page := `<html><body>
<div id="mw-content-text">
  <div class="hatnote">For other uses, see Widget (disambiguation).</div>
  <table class="infobox"><tr><td>Inventor: Someone</td></tr></table>
  <div id="toc">Contents 1 History</div>
  <p>A widget is a placeholder name for an object.</p>
  <table class="navbox"><tr><td>Related gadgets</td></tr></table>
</div>
<div class="catlinks">Categories: Objects</div>
</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	root := wikiContentRoot(doc)
	text := root.Text()

	assert.Contains(t, text, "A widget is a placeholder name")
	assert.NotContains(t, text, "For other uses")
	assert.NotContains(t, text, "Inventor")
	assert.NotContains(t, text, "Contents 1 History")
	assert.NotContains(t, text, "Related gadgets")
}

func TestFilenameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/docs/guide.pdf", "guide.pdf"},
		{"https://www.example.com/docs/guide", "example.com.html"},
		{"https://en.wikipedia.org/wiki/Go_(programming_language)", "en.wikipedia.org.html"},
		{"https://example.com/", "example.com.html"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FilenameFromURL(tt.url), tt.url)
	}
}

func TestCleanMarkdown(t *testing.T) {
	in := "# Title\n\n\n\n[](http://x)Body text\n##\n\n-----\n\n\n"
	assert.Equal(t, "# Title\n\nBody text\n\n---", CleanMarkdown(in))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("markdown read verbatim", func(t *testing.T) {
		path := filepath.Join(dir, "faq.md")
		content := "## What is X?\nX is a thing.\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		loaded, err := New(Options{}).LoadFile(context.Background(), path)
		require.NoError(t, err)
		require.Len(t, loaded.Units, 1)
		assert.Equal(t, content, loaded.Units[0].Text)
		assert.Equal(t, ".md", loaded.DocumentType)
		assert.Equal(t, path, loaded.Units[0].Metadata["source"])
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(dir, "image.png")
		require.NoError(t, os.WriteFile(path, []byte{0x89, 0x50}, 0o600))
		_, err := New(Options{}).LoadFile(context.Background(), path)
		requireLoadError(t, err)
	})

	t.Run("empty text file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.txt")
		require.NoError(t, os.WriteFile(path, []byte("   \n"), 0o600))
		_, err := New(Options{}).LoadFile(context.Background(), path)
		requireLoadError(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := New(Options{}).LoadFile(context.Background(), filepath.Join(dir, "gone.txt"))
		requireLoadError(t, err)
	})
}
