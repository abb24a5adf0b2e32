package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func TestSecretRoundTrip(t *testing.T) {
	h, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if err := CheckSecret(string(h), "s3cret"); err != nil {
		t.Fatalf("matching secret rejected: %v", err)
	}
	if err := CheckSecret(string(h), "nope"); !errors.Is(err, ErrBadSecret) {
		t.Fatalf("err = %v", err)
	}
	if err := CheckSecret("", "s3cret"); !errors.Is(err, ErrBadSecret) {
		t.Fatal("empty hash must never match")
	}
}

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("ops", RoleOperator, "idcards", "key", time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := Parse(pair.AccessToken, "key", "idcards")
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "ops" || claims.Kind != "access" {
		t.Fatalf("claims = %+v", claims)
	}
	if _, err := Parse(pair.AccessToken, "other", "idcards"); err == nil {
		t.Fatal("wrong key accepted")
	}
	if _, err := Parse(pair.AccessToken, "key", "someone-else"); err == nil {
		t.Fatal("wrong issuer accepted")
	}
}

func TestOperatorAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", OperatorAuth("key", "idcards"), func(c *gin.Context) {
		c.String(http.StatusOK, Subject(c))
	})

	access, _ := Issue("ops", RoleOperator, "idcards", "key", time.Minute, time.Hour)
	viewer, _ := Issue("v", "viewer", "idcards", "key", time.Minute, time.Hour)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"refresh token", access.RefreshToken, http.StatusUnauthorized},
		{"wrong role", viewer.AccessToken, http.StatusForbidden},
		{"ok", access.AccessToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK && w.Body.String() != "ops" {
				t.Errorf("subject = %q", w.Body.String())
			}
		})
	}
}
