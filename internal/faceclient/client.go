package faceclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"idcards/internal/photo"
)

// Detection is one face reported by the service.
type Detection struct {
	BBox  [4]int  `json:"bbox"` // x1, y1, x2, y2 in source pixels
	Score float64 `json:"score"`
}

// Client calls the face detection microservice.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client with configurable timeout.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Detect posts the encoded image and returns every face found.
func (c *Client) Detect(ctx context.Context, data []byte) ([]Detection, error) {
	if c.Skip {
		return nil, nil
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image data required")
	}

	body, _ := json.Marshal(map[string]string{"image_base64": base64.StdEncoding.EncodeToString(data)})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/detect", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		Faces []Detection `json:"faces"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Faces, nil
}

// LocateFace returns the highest-scoring face, or nil when none was found
// or the client runs in skip mode.
func (c *Client) LocateFace(ctx context.Context, data []byte) (*photo.FaceBox, error) {
	faces, err := c.Detect(ctx, data)
	if err != nil {
		return nil, err
	}
	var best *Detection
	for i := range faces {
		if best == nil || faces[i].Score > best.Score {
			best = &faces[i]
		}
	}
	if best == nil {
		return nil, nil
	}
	return &photo.FaceBox{X1: best.BBox[0], Y1: best.BBox[1], X2: best.BBox[2], Y2: best.BBox[3]}, nil
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}

	return nil
}
