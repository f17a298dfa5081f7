package api

import (
	"net/http"
	"os"
	"path/filepath"
)

// index serves the bundled frontend, or a minimal page when none is deployed.
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	p := filepath.Join(s.opts.PublicDir, "index.html")
	if fileExists(p) {
		http.ServeFile(w, r, p)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(fallbackHTML))
}

func (s *Server) favicon(w http.ResponseWriter, r *http.Request) {
	p := filepath.Join(s.opts.PublicDir, "whatsapp-logo.webp")
	if !fileExists(p) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/webp")
	http.ServeFile(w, r, p)
}

// static serves any other path from the public directory.
func (s *Server) static(w http.ResponseWriter, r *http.Request) {
	if s.opts.PublicDir == "" || !dirExists(s.opts.PublicDir) {
		http.NotFound(w, r)
		return
	}
	http.FileServer(http.Dir(s.opts.PublicDir)).ServeHTTP(w, r)
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func dirExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

const fallbackHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1.0" />
  <title>ChatSearch</title>
  <link rel="icon" type="image/webp" href="/whatsapp-logo.webp" />
  <link rel="stylesheet" href="/style.css" />
</head>
<body>
  <div id="app">
    <main id="main">
      <div id="welcome-panel">
        <h1>ChatSearch</h1>
        <p>Upload a WhatsApp chat export to view your conversation</p>
        <label class="upload-btn-main" for="file-input-main">Upload chat export (.txt)</label>
        <input type="file" id="file-input-main" accept=".txt" hidden />
        <p class="welcome-sub">Your messages stay private. Nothing is stored on any server.</p>
      </div>
      <div id="chat-panel" class="hidden"></div>
      <div id="error-toast" class="hidden"></div>
    </main>
  </div>
  <script type="module" src="/app.js"></script>
</body>
</html>`
