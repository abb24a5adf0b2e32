package faceclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"idcards/internal/photo"
)

var _ photo.FaceLocator = (*Client)(nil)

func TestLocateFacePicksBestScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req["image_base64"] == "" {
			t.Errorf("bad request body: %v %v", req, err)
		}
		fmt.Fprint(w, `{"faces":[{"bbox":[1,2,3,4],"score":0.4},{"bbox":[10,20,110,140],"score":0.97}]}`)
	}))
	defer srv.Close()

	box, err := New(srv.URL, false).LocateFace(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatal(err)
	}
	if box == nil || *box != (photo.FaceBox{X1: 10, Y1: 20, X2: 110, Y2: 140}) {
		t.Fatalf("box = %+v", box)
	}
}

func TestLocateFaceNone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"faces":[]}`)
	}))
	defer srv.Close()
	box, err := New(srv.URL, false).LocateFace(context.Background(), []byte("x"))
	if err != nil || box != nil {
		t.Fatalf("box = %v, err = %v", box, err)
	}
}

func TestSkipMode(t *testing.T) {
	c := New("http://unused.invalid", true)
	if box, err := c.LocateFace(context.Background(), []byte("x")); box != nil || err != nil {
		t.Fatalf("skip mode box = %v, err = %v", box, err)
	}
	if err := c.Health(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestServiceErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	if _, err := New(srv.URL, false).LocateFace(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected error")
	}
}
