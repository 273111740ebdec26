package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"dray/internal/xray/parser"
)

func TestPublish_UpdatesExistingFile(t *testing.T) {
	var put fileRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/me/subs/contents/out/sub.txt" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodGet:
			if r.URL.Query().Get("ref") != "main" {
				t.Errorf("ref=%q", r.URL.Query().Get("ref"))
			}
			json.NewEncoder(w).Encode(fileResponse{Sha: "abc"})
		case http.MethodPut:
			json.NewDecoder(r.Body).Decode(&put)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	d, err := parser.Parse("trojan://pw@t.example:443#t")
	if err != nil {
		t.Fatal(err)
	}
	params := map[string]interface{}{
		"token":   "tok",
		"owner":   "me",
		"repo":    "subs",
		"path":    "/out/sub.txt",
		"branch":  "main",
		"api_url": srv.URL + "/",
	}
	if err := (&Publisher{}).Publish(context.Background(), []*parser.Descriptor{d}, params); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if put.Sha != "abc" || put.Branch != "main" || put.Message == "" {
		t.Fatalf("put=%+v", put)
	}
	content, _ := base64.StdEncoding.DecodeString(put.Content)
	if string(content) != "trojan://pw@t.example:443#t" {
		t.Fatalf("content=%q", content)
	}
}

func TestPublish_MissingParams(t *testing.T) {
	if err := (&Publisher{}).Publish(context.Background(), nil, map[string]interface{}{"token": "x"}); err == nil {
		t.Fatalf("expected error for incomplete params")
	}
}
