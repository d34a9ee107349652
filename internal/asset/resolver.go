package asset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/genai"

	"github.com/gencraft/gencraft/internal/auth"
	"github.com/gencraft/gencraft/internal/log"
)

// ErrUpload indicates the attachment could not be uploaded to the asset
// store. Check with errors.Is(). Upload failures are locally recoverable:
// the user may retry with a fresh Resolve call.
var ErrUpload = errors.New("attachment upload failed")

// uploadEndpoint is the asset-store upload route, relative to the base URL.
const uploadEndpoint = "/api/upload"

// maxUploadBytes bounds the file size read into memory for upload.
const maxUploadBytes = 32 << 20 // 32 MiB

// Config contains required parameters for the Resolver.
type Config struct {
	BaseURL    string           // asset store endpoint, e.g. https://assets.example.com
	HTTPClient *http.Client     // nil = http.DefaultClient
	Tokens     auth.TokenSource // bearer credential for the asset store
	Logger     log.Logger
}

func (cfg Config) validate() error {
	if cfg.BaseURL == "" {
		return errors.New("base URL is required")
	}
	if cfg.Tokens == nil {
		return errors.New("token source is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Resolver uploads files to the asset store and produces Attachments.
//
// At most one resolution runs per in-flight turn; the caller owns that
// exclusivity. The Resolver never cancels an earlier attachment on its
// own; replacing one is an explicit caller decision.
type Resolver struct {
	baseURL string
	http    *http.Client
	tokens  auth.TokenSource
	logger  log.Logger
}

// NewResolver creates a Resolver.
func NewResolver(cfg Config) (*Resolver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Resolver{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		tokens:  cfg.Tokens,
		logger:  cfg.Logger,
	}, nil
}

// uploadResponse is the asset store's success payload.
type uploadResponse struct {
	RemotePath string `json:"remotePath"`
	AIPayload  struct {
		MIMEType string `json:"mimeType"`
		Data     []byte `json:"data"` // base64 on the wire
	} `json:"aiPayload"`
}

// Resolve uploads the file at path and returns the resulting Attachment.
//
// The attachment transitions pending→uploading immediately, then either
// uploading→ready (remote path and AI payload attached) or
// uploading→failed (diagnostic attached). On failure the returned error
// wraps ErrUpload and the failed Attachment is still returned so the
// caller can inspect Reason(); retrying means calling Resolve again,
// which yields a new Attachment instance.
func (r *Resolver) Resolve(ctx context.Context, path string) (*Attachment, error) {
	a := newAttachment(path)
	a.state = StateUploading

	r.logger.Debug("uploading attachment", "attachment_id", a.ID(), "path", path)

	data, err := readFileBounded(path)
	if err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrUpload, err)
		a.fail(wrapped)
		return a, wrapped
	}

	res, err := r.upload(ctx, filepath.Base(path), data)
	if err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrUpload, err)
		a.fail(wrapped)
		r.logger.Warn("attachment upload failed", "attachment_id", a.ID(), "error", err)
		return a, wrapped
	}

	payload, err := buildPayload(res, path, data)
	if err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrUpload, err)
		a.fail(wrapped)
		return a, wrapped
	}

	a.ready(res.RemotePath, payload)
	r.logger.Debug("attachment ready",
		"attachment_id", a.ID(),
		"remote_path", res.RemotePath,
		"bytes", len(data))
	return a, nil
}

// upload POSTs the raw file as multipart form data and decodes the response.
func (r *Resolver) upload(ctx context.Context, filename string, data []byte) (*uploadResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("building upload body: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("building upload body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+uploadEndpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	token, err := r.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("asset store returned %d: %s", resp.StatusCode, strings.TrimSpace(string(diag)))
	}

	var res uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	if res.RemotePath == "" {
		return nil, errors.New("asset store response missing remotePath")
	}
	return &res, nil
}

// buildPayload turns the upload result into a generation-service part.
// Prefers the store's aiPayload; falls back to the local bytes with a
// sniffed media type when the store omitted it.
func buildPayload(res *uploadResponse, path string, data []byte) (*genai.Part, error) {
	if len(res.AIPayload.Data) > 0 && res.AIPayload.MIMEType != "" {
		return genai.NewPartFromBytes(res.AIPayload.Data, res.AIPayload.MIMEType), nil
	}

	mediaType, err := detectMediaType(path, data)
	if err != nil {
		return nil, err
	}
	return genai.NewPartFromBytes(data, mediaType), nil
}

// detectMediaType sniffs the media type from content (magic bytes, not
// extension, which can be spoofed), falling back to the extension for
// media containers http.DetectContentType does not know.
func detectMediaType(path string, data []byte) (string, error) {
	mediaType := http.DetectContentType(data)
	if strings.HasPrefix(mediaType, "image/") ||
		strings.HasPrefix(mediaType, "audio/") ||
		strings.HasPrefix(mediaType, "video/") {
		return mediaType, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	case ".png":
		return "image/png", nil
	case ".gif":
		return "image/gif", nil
	case ".webp":
		return "image/webp", nil
	case ".mp3":
		return "audio/mpeg", nil
	case ".wav":
		return "audio/wav", nil
	case ".mp4":
		return "video/mp4", nil
	case ".webm":
		return "video/webm", nil
	default:
		return "", fmt.Errorf("unsupported media type %q for %s", mediaType, filepath.Base(path))
	}
}

// readFileBounded reads the file, rejecting anything over maxUploadBytes.
func readFileBounded(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if info.Size() > maxUploadBytes {
		return nil, fmt.Errorf("%s exceeds upload limit (%d bytes)", filepath.Base(path), maxUploadBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
