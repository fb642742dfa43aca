package model

import "encoding/base64"

// UploadedImage - 업로드된 원본 이미지 (raw bytes + media type)
type UploadedImage struct {
	Data     []byte
	MimeType string
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i UploadedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// Payload converts the image to its wire form.
func (i UploadedImage) Payload() ImagePayload {
	return ImagePayload{Data: i.Base64(), MimeType: i.MimeType}
}

// ImagePayload - JSON 전송용 이미지 (base64 인코딩)
type ImagePayload struct {
	Data     string `json:"data"`      // base64 인코딩된 이미지 데이터
	MimeType string `json:"mime_type"` // image/jpeg, image/png 등
}

// Result - 생성 결과
type Result struct {
	Image   UploadedImage
	Text    string
	Subject string // display name used for the download filename
}

// ModeInfo describes one experience for the catalog endpoint.
type ModeInfo struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}
