package utils

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"photo-fusion-server/modules/common/apperr"
	"photo-fusion-server/modules/common/model"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// DecodeBase64Image - base64 문자열(data URL 포함)을 UploadedImage로 변환
func DecodeBase64Image(encoded, declaredMime string) (model.UploadedImage, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return model.UploadedImage{}, apperr.Validation("Image data is required.")
	}

	// data:image/png;base64,xxxx
	if strings.HasPrefix(encoded, "data:") {
		header, body, ok := strings.Cut(encoded, ",")
		if !ok {
			return model.UploadedImage{}, apperr.Decode("Could not process the image file.", fmt.Errorf("malformed data URL"))
		}
		if declaredMime == "" {
			declaredMime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		}
		encoded = body
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return model.UploadedImage{}, apperr.Decode("Could not process the image file.", err)
	}
	return newUploadedImage(data, declaredMime)
}

// ReadImage - reader에서 최대 limit 바이트를 읽어 UploadedImage로 변환
func ReadImage(r io.Reader, declaredMime string, limit int64) (model.UploadedImage, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return model.UploadedImage{}, apperr.Decode("Failed to read the image file.", err)
	}
	if int64(len(data)) > limit {
		return model.UploadedImage{}, apperr.Validation(fmt.Sprintf("Image exceeds the %d byte upload limit.", limit))
	}
	return newUploadedImage(data, declaredMime)
}

// DetectMimeType prefers the declared image type and sniffs the bytes otherwise.
func DetectMimeType(data []byte, declaredMime string) string {
	declaredMime = strings.ToLower(strings.TrimSpace(declaredMime))
	if strings.HasPrefix(declaredMime, "image/") {
		return declaredMime
	}
	return http.DetectContentType(data)
}

func newUploadedImage(data []byte, declaredMime string) (model.UploadedImage, error) {
	if len(data) == 0 {
		return model.UploadedImage{}, apperr.Validation("Image data is required.")
	}
	mimeType := DetectMimeType(data, declaredMime)
	if !strings.HasPrefix(mimeType, "image/") {
		return model.UploadedImage{}, apperr.Decode(
			fmt.Sprintf("Unsupported file type %q, please upload an image.", mimeType), nil)
	}
	return model.UploadedImage{Data: data, MimeType: mimeType}, nil
}

// DownloadFilename - 표시 이름을 다운로드 파일명으로 변환
// "Robert Downey Jr" + "celebify" -> "robert-downey-jr-celebify.png"
func DownloadFilename(displayName, suffix string) string {
	slug := strings.ToLower(whitespaceRun.ReplaceAllString(displayName, "-"))
	return fmt.Sprintf("%s-%s.png", slug, suffix)
}
