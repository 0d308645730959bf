// Package fingerprint talks to the face embedding server that turns frames into probes.
package fingerprint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

const (
	defaultEmbeddingURL = "http://localhost:8000"
	faceEndpoint        = "/embed/face"
	requestTimeout      = 60 * time.Second
)

var (
	// ErrDetector is returned when the embedding server cannot be reached or answers with an error
	ErrDetector = errors.New("face detector unavailable")
	// ErrNoFace is returned by DetectSingleFace when the image contains no face
	ErrNoFace = errors.New("no face detected")
	// ErrMultipleFaces is returned by DetectSingleFace when the image contains more than one face
	ErrMultipleFaces = errors.New("multiple faces detected")
)

// EmbeddingClient computes face embeddings using the embedding server
type EmbeddingClient struct {
	baseURL      string
	dim          int
	maxImageSize int
	client       *http.Client
}

// NewEmbeddingClient creates a client from the EMBEDDING_* configuration
func NewEmbeddingClient(cfg config.EmbeddingConfig) *EmbeddingClient {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	return &EmbeddingClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		dim:          cfg.Dim,
		maxImageSize: cfg.MaxImageSize,
		client:       &http.Client{Timeout: requestTimeout},
	}
}

// faceDetection represents a single detected face as returned by the server
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse represents the response from the face embedding endpoint
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Detection is the set of probes found in one frame
type Detection struct {
	Probes []facematch.Probe
	Model  string
}

// DetectFaces uploads a frame and returns one probe per detected face, in the server's order.
// Bounding boxes are expressed in the coordinates of the submitted frame.
func (c *EmbeddingClient) DetectFaces(ctx context.Context, imageData []byte) (*Detection, error) {
	upload, scale, err := fitImage(imageData, c.maxImageSize)
	if err != nil {
		return nil, err
	}

	body, err := c.postMultipartImage(ctx, faceEndpoint, upload)
	if err != nil {
		return nil, err
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", ErrDetector, err)
	}

	det := &Detection{Model: resp.Model, Probes: make([]facematch.Probe, 0, len(resp.Faces))}
	for _, face := range resp.Faces {
		bbox := make([]float64, len(face.BBox))
		for i, v := range face.BBox {
			bbox[i] = v * scale
		}
		det.Probes = append(det.Probes, facematch.Probe{
			Embedding: face.Embedding,
			DetScore:  face.DetScore,
			BBox:      bbox,
		})
	}
	return det, nil
}

// DetectSingleFace returns the embedding of the only face in an enrolment photo.
func (c *EmbeddingClient) DetectSingleFace(ctx context.Context, imageData []byte) ([]float32, string, error) {
	det, err := c.DetectFaces(ctx, imageData)
	if err != nil {
		return nil, "", err
	}

	switch len(det.Probes) {
	case 0:
		return nil, "", ErrNoFace
	case 1:
	default:
		return nil, "", fmt.Errorf("%w: %d faces", ErrMultipleFaces, len(det.Probes))
	}

	emb := det.Probes[0].Embedding
	if c.dim > 0 && len(emb) != c.dim {
		return nil, "", fmt.Errorf("%w: got %d, want %d", facematch.ErrDimensionMismatch, len(emb), c.dim)
	}
	return emb, det.Model, nil
}

// postMultipartImage posts the image as the "file" form field and returns the response body.
func (c *EmbeddingClient) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame"`)
	h.Set("Content-Type", http.DetectContentType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", ErrDetector, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrDetector, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: API error (status %d): %s", ErrDetector, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
