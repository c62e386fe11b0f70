package discovery

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const landingHTML = `<html><body>
<a href="files/contratosMenoresPerfiles_202301.zip">Enero</a>
<a href="files/contratosMenoresPerfiles_202302.zip">Febrero</a>
<a href="notes.pdf">Notes</a>
<a href="/abs/contratosMenoresPerfiles_202301.zip">Duplicate</a>
</body></html>`

func TestDiscoverExtractsPeriods(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(landingHTML))
	}))
	defer srv.Close()

	c, err := NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	links, err := c.Discover(srv.URL + "/page/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 distinct periods, got %d: %v", len(links), links)
	}
	if _, ok := links["202301"]; !ok {
		t.Fatal("expected period 202301 to be discovered")
	}
	if _, ok := links["202302"]; !ok {
		t.Fatal("expected period 202302 to be discovered")
	}
}

func TestDiscoverNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Discover(srv.URL); err == nil {
		t.Fatal("expected a network error on 500")
	}
}

func TestDiscoverBadURL(t *testing.T) {
	c, err := NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Discover("://not-a-url"); err == nil {
		t.Fatal("expected a url error on malformed landing URL")
	}
}
