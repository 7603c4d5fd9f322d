package ngrok

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tunnels" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"tunnels":[
			{"name":"other","public_url":"https://other.ngrok.app","proto":"https","config":{"addr":"http://localhost:8080"}},
			{"name":"show","public_url":"https://show.ngrok.app","proto":"https","config":{"addr":"http://localhost:1337"}}
		]}`))
	}))
	defer srv.Close()

	bin, api := BinPath, APIURL
	defer func() { BinPath, APIURL = bin, api }()
	BinPath = "true"
	APIURL = srv.URL

	u, cancel, err := Run(context.Background(), "1337", time.Second)
	if err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}
	defer cancel()
	if u != "https://show.ngrok.app" {
		t.Errorf("Run() = %q; want https://show.ngrok.app", u)
	}

	if _, _, err := Run(context.Background(), "9999", 100*time.Millisecond); err == nil {
		t.Error("Run() for unknown port err = nil; want error")
	}
}
