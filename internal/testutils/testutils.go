// Package testutils provides a fake rdgen server for tests.
package testutils

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// GeneratorOptions shapes the behavior of a fake generator server.
type GeneratorOptions struct {
	Filename string
	Platform string
	// UUID defaults to a random UUID.
	UUID string

	// Stages are returned by successive status checks before the build is
	// reported as generated.
	Stages []string

	// NoFileGenerated makes the final page carry the error marker.
	NoFileGenerated bool

	// Title overrides the title of the final status page.
	Title string

	// Artifacts maps artifact file names to their content. Missing names
	// are answered with 404.
	Artifacts map[string][]byte

	// Username and Password enable basic auth on every endpoint.
	Username string
	Password string

	// StartStatus, when non-zero, is returned by POST /generator.
	StartStatus int

	// ExtraQuery is appended to the check_for_file redirect.
	ExtraQuery string
}

// GeneratorServer is an httptest server imitating the rdgen web UI.
type GeneratorServer struct {
	*httptest.Server
	Opts GeneratorOptions

	mu        sync.Mutex
	form      url.Values
	checks    int
	downloads []string
}

// StartGeneratorServer starts a fake generator. It is closed on test cleanup.
func StartGeneratorServer(t *testing.T, opts GeneratorOptions) *GeneratorServer {
	t.Helper()

	if opts.UUID == "" {
		opts.UUID = uuid.NewString()
	}
	if opts.Filename == "" {
		opts.Filename = "rustdesk"
	}
	if opts.Platform == "" {
		opts.Platform = "windows"
	}

	s := &GeneratorServer{Opts: opts}
	mux := http.NewServeMux()
	mux.HandleFunc("/generator", s.handleGenerator)
	mux.HandleFunc("/check_for_file", s.handleCheck)
	mux.HandleFunc("/download", s.handleDownload)

	s.Server = httptest.NewServer(s.withAuth(mux))
	t.Cleanup(s.Close)
	return s
}

// Form returns the form submitted to /generator.
func (s *GeneratorServer) Form() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// Checks returns the number of status checks served.
func (s *GeneratorServer) Checks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checks
}

// Downloads returns the artifact names requested, in order.
func (s *GeneratorServer) Downloads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.downloads...)
}

func (s *GeneratorServer) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Opts.Username != "" {
			user, pass, ok := r.BasicAuth()
			if !ok || user != s.Opts.Username || pass != s.Opts.Password {
				w.Header().Set("WWW-Authenticate", `Basic realm="rdgen"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *GeneratorServer) handleGenerator(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.form = r.PostForm
	s.mu.Unlock()

	if s.Opts.StartStatus != 0 {
		http.Error(w, "generator unavailable", s.Opts.StartStatus)
		return
	}

	io.WriteString(w, GeneratingPage("Starting build", s.query()))
}

func (s *GeneratorServer) handleCheck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("filename") != s.Opts.Filename || q.Get("uuid") != s.Opts.UUID || q.Get("platform") != s.Opts.Platform {
		http.Error(w, "unknown build", http.StatusNotFound)
		return
	}

	s.mu.Lock()
	idx := s.checks
	s.checks++
	s.mu.Unlock()

	if idx < len(s.Opts.Stages) {
		io.WriteString(w, GeneratingPage(s.Opts.Stages[idx], s.query()))
		return
	}

	title := s.Opts.Title
	if title == "" {
		title = "Generated"
	}
	io.WriteString(w, GeneratedPage(title, s.Opts.NoFileGenerated))
}

func (s *GeneratorServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("filename")
	if r.URL.Query().Get("uuid") != s.Opts.UUID {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	s.downloads = append(s.downloads, name)
	s.mu.Unlock()

	data, ok := s.Opts.Artifacts[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (s *GeneratorServer) query() string {
	q := fmt.Sprintf("filename=%s&uuid=%s&platform=%s", s.Opts.Filename, s.Opts.UUID, s.Opts.Platform)
	if s.Opts.ExtraQuery != "" {
		q += "&" + s.Opts.ExtraQuery
	}
	return q
}

// GeneratingPage renders an in-progress status page.
func GeneratingPage(stage, query string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title id="pageTitle">Generating...</title>
</head>
<body>
<h1>Generating your client</h1>
<span id="statusText">%s</span>
<script>
setTimeout(function() {
    window.location.replace('/check_for_file?%s');
}, 5000);
</script>
</body>
</html>`, html.EscapeString(stage), query)
}

// GeneratedPage renders a terminal status page.
func GeneratedPage(title string, noFile bool) string {
	body := `<p>Your build is ready.</p>`
	if noFile {
		body = `<p>Error: No file generated</p>`
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<title id="pageTitle">%s</title>
</head>
<body>
%s
</body>
</html>`, title, body)
}

// GenerateTestData returns deterministic data of the given size.
func GenerateTestData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 256)
	}
	return data
}

// CompareReaderToData compares reader output with expected data in chunks.
func CompareReaderToData(t *testing.T, reader io.Reader, expected []byte) {
	t.Helper()

	buf := make([]byte, 64*1024)
	offset := 0

	for {
		n, err := reader.Read(buf)
		if n > 0 {
			if offset+n > len(expected) {
				t.Fatalf("read more data than expected: offset=%d, n=%d, expected len=%d",
					offset, n, len(expected))
			}
			if !bytes.Equal(buf[:n], expected[offset:offset+n]) {
				t.Fatalf("data mismatch at offset %d", offset)
			}
			offset += n
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read error at offset %d: %v", offset, err)
		}
	}

	if offset != len(expected) {
		t.Fatalf("incomplete read: got %d bytes, want %d", offset, len(expected))
	}
}
