package api

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"idcards/internal/artifact"
	"idcards/internal/cardtemplate"
	"idcards/internal/employee"
	"idcards/internal/export"
	"idcards/internal/jobstore"
	"idcards/internal/photo"
	"idcards/internal/queue"
	"idcards/internal/surface"
)

const testScale = 4.5

type testAPI struct {
	router  *gin.Engine
	token   string
	refresh string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	templates := cardtemplate.NewStore()
	templates.Put(cardtemplate.Default())
	employees := employee.NewService(employee.NewMemoryStore())
	dir, err := artifact.NewLocalDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	fonts := surface.BuiltinFonts()
	pipeline := export.NewPipeline(export.Config{
		Surfaces: surface.NewRasterSource(fonts, nil),
		Fonts:    fonts,
		Yield:    -1,
	})
	exports := export.NewService(export.ServiceConfig{
		Pipeline:  pipeline,
		Records:   employees,
		Templates: templates,
		Sink:      dir,
		Jobs:      jobstore.NewMemory(time.Hour),
		Queue:     queue.NewInMemory(4),
	})
	hash, err := bcrypt.GenerateFromPassword([]byte("front-desk"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	h := New(Deps{
		Employees:       employees,
		Templates:       templates,
		Photos:          photo.NewProcessor(nil, nil),
		Exports:         exports,
		DefaultTemplate: cardtemplate.Default().ID,
		DefaultScale:    testScale,
		Auth: AuthConfig{
			Issuer:       "idcards",
			SigningKey:   "test-key",
			OperatorHash: string(hash),
			AccessTTL:    time.Minute,
			RefreshTTL:   time.Hour,
		},
	})
	a := &testAPI{router: h.Router()}

	w := a.do(t, http.MethodPost, "/v1/operators/token", map[string]string{"operator": "desk-1", "secret": "front-desk"})
	if w.Code != http.StatusCreated {
		t.Fatalf("token status = %d body=%s", w.Code, w.Body)
	}
	var tok struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decode(t, w, &tok)
	a.token, a.refresh = tok.AccessToken, tok.RefreshToken
	return a
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return a.send(req)
}

func (a *testAPI) send(req *http.Request) *httptest.ResponseRecorder {
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func portraitJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 250))
	for y := 0; y < 250; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 120, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func employeeBody(id, blood string) map[string]any {
	return map[string]any{"employees": []map[string]string{{
		"name":        "Asha Rao",
		"employee_id": id,
		"mobile":      "9876543210",
		"blood_group": blood,
	}}}
}

func (a *testAPI) seed(t *testing.T, id, blood string) {
	t.Helper()
	if w := a.do(t, http.MethodPost, "/v1/employees", employeeBody(id, blood)); w.Code != http.StatusOK {
		t.Fatalf("save status = %d body=%s", w.Code, w.Body)
	}
	data := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(portraitJPEG(t))
	w := a.do(t, http.MethodPost, "/v1/employees/"+id+"/photo", map[string]string{"data": data})
	if w.Code != http.StatusOK {
		t.Fatalf("photo status = %d body=%s", w.Code, w.Body)
	}
}

func TestHealthz(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	a := newTestAPI(t)
	a.token = ""
	w := a.do(t, http.MethodPost, "/v1/operators/token", map[string]string{"operator": "x", "secret": "guess"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRefreshIssuesNewPair(t *testing.T) {
	a := newTestAPI(t)
	access := a.token
	a.token = ""

	w := a.do(t, http.MethodPost, "/v1/operators/refresh", map[string]string{"refresh_token": a.refresh})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	var tok struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decode(t, w, &tok)
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		t.Fatalf("tokens = %+v", tok)
	}
	a.token = tok.AccessToken
	if w := a.do(t, http.MethodGet, "/v1/employees", nil); w.Code != http.StatusOK {
		t.Fatalf("refreshed token rejected: %d", w.Code)
	}

	a.token = ""
	for _, bad := range []string{access, "not-a-token"} {
		w := a.do(t, http.MethodPost, "/v1/operators/refresh", map[string]string{"refresh_token": bad})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("refresh with %.12q: status = %d", bad, w.Code)
		}
	}
}

func TestRoutesRequireToken(t *testing.T) {
	a := newTestAPI(t)
	a.token = ""
	if w := a.do(t, http.MethodGet, "/v1/employees", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestUploadPhotoReportsQuality(t *testing.T) {
	a := newTestAPI(t)
	a.seed(t, "E100", "O+")

	w := a.do(t, http.MethodGet, "/v1/employees/E100", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var rec employee.Record
	decode(t, w, &rec)
	if rec.Photo == nil || rec.Photo.Width != 1280 || rec.Photo.Height != 1600 {
		t.Fatalf("stored photo = %+v", rec.Photo)
	}
}

func TestUploadPhotoUnknownEmployee(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodPost, "/v1/employees/NOPE/photo", map[string]string{"data": "aGk="})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestUploadPhotoUnreadable(t *testing.T) {
	a := newTestAPI(t)
	a.do(t, http.MethodPost, "/v1/employees", employeeBody("E1", "A+"))
	w := a.do(t, http.MethodPost, "/v1/employees/E1/photo", map[string]string{"data": base64.StdEncoding.EncodeToString([]byte("not an image"))})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
}

func TestBulkPhotoImport(t *testing.T) {
	a := newTestAPI(t)
	a.do(t, http.MethodPost, "/v1/employees", employeeBody("E7", "B+"))

	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	for name, data := range map[string][]byte{
		"photos/E7.jpg":    portraitJPEG(t),
		"photos/GHOST.jpg": portraitJPEG(t),
		"photos/.DS_Store": []byte("junk"),
	} {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		f.Write(data)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("archive", "photos.zip")
	part.Write(archive.Bytes())
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/v1/photos/bulk", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := a.send(req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	var out struct {
		Imported []string        `json:"imported"`
		Failures []ImportFailure `json:"failures"`
	}
	decode(t, w, &out)
	if len(out.Imported) != 1 || out.Imported[0] != "E7" {
		t.Fatalf("imported = %v", out.Imported)
	}
	if len(out.Failures) != 1 || out.Failures[0].EmployeeID != "GHOST" {
		t.Fatalf("failures = %+v", out.Failures)
	}
}

func TestSyncExportReturnsPDF(t *testing.T) {
	a := newTestAPI(t)
	a.seed(t, "E100", "O+")

	w := a.do(t, http.MethodPost, "/v1/exports", map[string]any{"employee_ids": []string{"E100"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")) {
		t.Fatal("body is not a PDF")
	}
	if got := w.Header().Get("X-Export-Pages"); got != "2" {
		t.Fatalf("pages = %q", got)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "id-cards-bulk-1-") {
		t.Fatalf("content disposition = %q", cd)
	}
	if w.Header().Get("X-Artifact-Location") == "" {
		t.Fatal("artifact location missing")
	}
}

func TestSingleExportFrontOnly(t *testing.T) {
	a := newTestAPI(t)
	a.seed(t, "E100", "O+")

	w := a.do(t, http.MethodPost, "/v1/exports/single/E100", map[string]any{"include_back": false})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	if got := w.Header().Get("X-Export-Pages"); got != "1" {
		t.Fatalf("pages = %q", got)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "id-card-E100.pdf") {
		t.Fatalf("content disposition = %q", cd)
	}
}

func TestExportQualityGate(t *testing.T) {
	a := newTestAPI(t)
	a.seed(t, "E100", "")

	w := a.do(t, http.MethodPost, "/v1/exports", map[string]any{"employee_ids": []string{"E100"}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	var out struct {
		Code   string `json:"code"`
		Issues []struct {
			Field string `json:"field"`
		} `json:"issues"`
	}
	decode(t, w, &out)
	if out.Code != "MissingRecordField" || len(out.Issues) == 0 || out.Issues[0].Field != "blood_group" {
		t.Fatalf("response = %+v", out)
	}
}

func TestExportErrors(t *testing.T) {
	a := newTestAPI(t)
	a.seed(t, "E100", "O+")

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"no employees", map[string]any{}, http.StatusBadRequest},
		{"no sides", map[string]any{"employee_ids": []string{"E100"}, "include_front": false, "include_back": false}, http.StatusBadRequest},
		{"unknown template", map[string]any{"employee_ids": []string{"E100"}, "template_id": "missing"}, http.StatusNotFound},
		{"unknown employee", map[string]any{"employee_ids": []string{"E404"}}, http.StatusNotFound},
		{"low scale", map[string]any{"employee_ids": []string{"E100"}, "quality_scale": 2}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := a.do(t, http.MethodPost, "/v1/exports", tt.body); w.Code != tt.want {
				t.Fatalf("status = %d, want %d body=%s", w.Code, tt.want, w.Body)
			}
		})
	}
}

func TestAsyncExportIsQueued(t *testing.T) {
	a := newTestAPI(t)
	a.seed(t, "E100", "O+")

	w := a.do(t, http.MethodPost, "/v1/exports", map[string]any{"employee_ids": []string{"E100"}, "async": true})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	var st jobstore.Status
	decode(t, w, &st)
	if st.State != jobstore.StateQueued || st.ID == "" {
		t.Fatalf("status = %+v", st)
	}

	w = a.do(t, http.MethodGet, "/v1/exports/"+st.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status lookup = %d", w.Code)
	}
	if w = a.do(t, http.MethodGet, "/v1/exports/unknown", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown job = %d", w.Code)
	}
}

func TestListTemplates(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodGet, "/v1/templates", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"has_back":true`) {
		t.Fatalf("body = %s", w.Body)
	}
}
