package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// UploadImage pushes an image to the media endpoint and returns its public
// id, which is what gets sent over the socket.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	if !c.session.Authenticated() {
		return "", ErrNotAuthenticated
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/chat/upload-image/", &buf)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.session.Tokens().Access)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading image: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var out struct {
		PublicID string `json:"public_id"`
	}
	if err := decode(resp.StatusCode, data, &out); err != nil {
		return "", err
	}
	if out.PublicID == "" {
		return "", fmt.Errorf("upload response missing public_id")
	}
	return out.PublicID, nil
}

// SignedImageURL exchanges a public id for a short-lived display URL.
func (c *Client) SignedImageURL(ctx context.Context, publicID string) (string, error) {
	var resp struct {
		SignedURL string `json:"signed_url"`
		ExpiresIn int    `json:"expires_in"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/chat/signedimage/",
		map[string]string{"public_id": publicID}, &resp)
	if err != nil {
		return "", err
	}
	return resp.SignedURL, nil
}
