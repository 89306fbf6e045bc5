package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cdf-tools/streamlit-deploy/internal/domain"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/ci"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRun_NoCIEnvironment(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == "INPUT_APP_FOLDER" {
			t.Fatalf("app folder looked up before environment detection")
		}
		return "", false
	}
	err := run(context.Background(), discardLogger(), lookup, &bytes.Buffer{})
	if !errors.Is(err, ci.ErrAmbiguousEnvironment) {
		t.Fatalf("run() err=%v, want ErrAmbiguousEnvironment", err)
	}
	if code := exitCode(err); code != 2 {
		t.Fatalf("exitCode()=%d, want 2", code)
	}
}

func TestRun_MissingCredentials(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == "GITHUB_ACTIONS" {
			return "true", true
		}
		return "", false
	}
	err := run(context.Background(), discardLogger(), lookup, &bytes.Buffer{})
	if kind, _ := domain.KindOf(err); kind != domain.KindConfig {
		t.Fatalf("run() err=%v, want configuration error", err)
	}
}

func TestRun_MissingRequirementsExitCode(t *testing.T) {
	dir := t.TempDir()
	cfgYAML := "name: demo\nversion: '1.0'\ndescription: d\ncreator: me\nentrypoint: app.py\npublished: true\nexternal_id: demo1\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	vars := map[string]string{
		"TF_BUILD":                 "True",
		"CDF_PROJECT":              "proj",
		"CDF_CLUSTER":              "c",
		"DEPLOYMENT_CLIENT_ID":     "id",
		"DEPLOYMENT_TENANT_ID":     "tenant",
		"DEPLOYMENT_CLIENT_SECRET": "secret",
		"APP_FOLDER":               dir,
	}
	lookup := func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
	err := run(context.Background(), discardLogger(), lookup, &bytes.Buffer{})
	if kind, _ := domain.KindOf(err); kind != domain.KindFilesystem {
		t.Fatalf("run() err=%v, want filesystem error", err)
	}
	if code := exitCode(err); code != 1 {
		t.Fatalf("exitCode()=%d, want 1", code)
	}
}

func TestRun_EndToEndCDF(t *testing.T) {
	var (
		mu       sync.Mutex
		srv      *httptest.Server
		authz    string
		uploaded []byte
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/authorize",
			"token_endpoint":         srv.URL + "/token",
			"jwks_uri":               srv.URL + "/keys",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/api/v1/projects/proj/files", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		authz = r.Header.Get("Authorization")
		mu.Unlock()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         1,
			"externalId": body["externalId"],
			"uploadUrl":  srv.URL + "/signed",
		})
	})
	mux.HandleFunc("/signed", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		uploaded, _ = io.ReadAll(r.Body)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	appFiles := map[string]string{
		"config.yaml":      "name: demo\nversion: 1.0\ndescription: d\ncreator: me\nentrypoint: app.py\npublished: true\nexternal_id: demo1\n",
		"requirements.txt": "streamlit==1.0\npandas==2.0\n",
		"app.py":           `print("hi")`,
	}
	for name, content := range appFiles {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	output := filepath.Join(t.TempDir(), "github_output")
	vars := map[string]string{
		"GITHUB_ACTIONS":                 "true",
		"GITHUB_OUTPUT":                  output,
		"INPUT_CDF_PROJECT":              "proj",
		"INPUT_CDF_CLUSTER":              "c",
		"INPUT_DEPLOYMENT_CLIENT_ID":     "id",
		"INPUT_DEPLOYMENT_TENANT_ID":     "tenant",
		"INPUT_DEPLOYMENT_CLIENT_SECRET": "secret",
		"INPUT_APP_FOLDER":               dir,
		"CDF_BASE_URL":                   srv.URL,
		"OIDC_ISSUER_URL":                srv.URL,
	}
	lookup := func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}

	if err := run(context.Background(), discardLogger(), lookup, &bytes.Buffer{}); err != nil {
		t.Fatalf("run() err=%v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if authz != "Bearer tok" {
		t.Fatalf("Authorization=%q, want Bearer tok", authz)
	}
	want := `{"requirements":["streamlit==1.0","pandas==2.0"],"entrypoint":"app.py","files":{"app.py":{"content":{"$case":"text","text":"print(\"hi\")"}}}}`
	if string(uploaded) != want {
		t.Fatalf("uploaded=%s", uploaded)
	}
	raw, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(raw) != "app_external_id=stapp-demo1\n" {
		t.Fatalf("output=%q", raw)
	}
}
