package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"framez.app/framez/models"
)

const cloudinaryBaseURL = "https://api.cloudinary.com/v1_1"

// CloudinaryService uploads images via Cloudinary's unsigned upload
// endpoint. One request per upload, no retry, no chunking.
type CloudinaryService struct {
	cloudName    string
	uploadPreset string
	baseURL      string
	httpClient   *http.Client
	log          *logrus.Entry
}

func NewCloudinaryService(cloudName, uploadPreset string) *CloudinaryService {
	return &CloudinaryService{
		cloudName:    cloudName,
		uploadPreset: uploadPreset,
		baseURL:      cloudinaryBaseURL,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		log:          logrus.WithField("component", "cloudinary"),
	}
}

// NewCloudinaryServiceAt is like NewCloudinaryService but targets a custom
// endpoint. Used by tests.
func NewCloudinaryServiceAt(baseURL, cloudName, uploadPreset string, client *http.Client) *CloudinaryService {
	s := NewCloudinaryService(cloudName, uploadPreset)
	s.baseURL = baseURL
	if client != nil {
		s.httpClient = client
	}
	return s
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// UploadImage uploads the image at imageURI (a local path, optionally with
// a file:// scheme) and returns its durable secure URL. Every failure
// surfaces as an upload error; the caller decides whether to abort.
func (s *CloudinaryService) UploadImage(ctx context.Context, imageURI string) (string, error) {
	path := strings.TrimPrefix(imageURI, "file://")

	file, err := os.Open(path)
	if err != nil {
		return "", models.NewUploadError("Could not read image", err)
	}
	defer file.Close()

	var body strings.Builder
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", models.NewUploadError("", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", models.NewUploadError("Could not read image", err)
	}
	if err := writer.WriteField("upload_preset", s.uploadPreset); err != nil {
		return "", models.NewUploadError("", err)
	}
	if err := writer.Close(); err != nil {
		return "", models.NewUploadError("", err)
	}

	url := fmt.Sprintf("%s/%s/image/upload", s.baseURL, s.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body.String()))
	if err != nil {
		return "", models.NewUploadError("", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.WithError(err).Error("upload request failed")
		return "", models.NewUploadError("", err)
	}
	defer resp.Body.Close()

	var parsed cloudinaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", models.NewUploadError("", err)
	}

	if resp.StatusCode != http.StatusOK || parsed.SecureURL == "" {
		s.log.Errorf("upload rejected (status=%d): %s", resp.StatusCode, parsed.Error.Message)
		return "", models.NewUploadError(parsed.Error.Message, nil)
	}

	return parsed.SecureURL, nil
}

// OptimizedURL rewrites an already-uploaded Cloudinary URL to request a
// resized, quality-adjusted variant. Pure string substitution; URLs from
// other hosts pass through unchanged.
func OptimizedURL(url string, width, quality int) string {
	if !strings.Contains(url, "cloudinary.com") {
		return url
	}
	return strings.Replace(url, "/upload/", fmt.Sprintf("/upload/w_%d,q_%d,f_auto/", width, quality), 1)
}

// ThumbnailURL returns a small preview variant of url.
func ThumbnailURL(url string) string {
	return OptimizedURL(url, 150, 70)
}
