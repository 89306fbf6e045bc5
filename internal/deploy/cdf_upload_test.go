package deploy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cdf-tools/streamlit-deploy/internal/cdf"
)

func TestCDFUploader(t *testing.T) {
	var (
		mu       sync.Mutex
		created  cdf.FileCreate
		uploaded []byte
	)
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/projects/proj/files", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&created)
		_ = json.NewEncoder(w).Encode(cdf.File{ExternalID: created.ExternalID, UploadURL: srv.URL + "/signed"})
	})
	mux.HandleFunc("/signed", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		uploaded, _ = io.ReadAll(r.Body)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	client, err := cdf.NewClient(cdf.Config{BaseURL: srv.URL, Project: "proj"}, srv.Client(), srv.Client())
	if err != nil {
		t.Fatalf("NewClient() err=%v", err)
	}
	cfg := demoRunConfig(t)

	got, err := CDFUploader{Client: client}.UploadFile(context.Background(), NewRequest(cfg.App), []byte(`{"x":1}`))
	if err != nil {
		t.Fatalf("UploadFile() err=%v", err)
	}
	if got != "stapp-demo1" {
		t.Fatalf("UploadFile()=%q", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if created.Name != "demo1-source.json" || created.MimeType != "application/json" || created.Metadata["published"] != "true" {
		t.Fatalf("created=%+v", created)
	}
	if string(uploaded) != `{"x":1}` {
		t.Fatalf("uploaded=%q", uploaded)
	}
}
