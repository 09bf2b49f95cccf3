package pixelapi

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidResponse is returned when no known response shape matches.
var ErrInvalidResponse = errors.New("unrecognized response format from the image API")

// The API has shipped three response shapes over time: a list of
// base64-encoded images, a list of image URIs, and a single base64 field.
// Each gets its own parser; normalize tries them in priority order and fails
// loudly when none match instead of guessing.

type base64ListBody struct {
	Base64Images []string `json:"base64_images"`
}

type uriListBody struct {
	Images []string `json:"images"`
}

type singleImageBody struct {
	Image string `json:"image"`
}

type creditsBody struct {
	RemainingCredits int `json:"remaining_credits"`
}

func normalize(raw []byte) (*Output, error) {
	parsers := []func([]byte) (string, bool){
		parseBase64List,
		parseURIList,
		parseSingleImage,
	}

	for _, parse := range parsers {
		imageURL, ok := parse(raw)
		if !ok {
			continue
		}
		out := &Output{ImageURL: imageURL}
		var credits creditsBody
		if err := json.Unmarshal(raw, &credits); err == nil {
			out.RemainingCredits = credits.RemainingCredits
		}
		return out, nil
	}

	return nil, ErrInvalidResponse
}

func parseBase64List(raw []byte) (string, bool) {
	var body base64ListBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", false
	}
	if len(body.Base64Images) == 0 || body.Base64Images[0] == "" {
		return "", false
	}
	return asDataURL(body.Base64Images[0]), true
}

func parseURIList(raw []byte) (string, bool) {
	var body uriListBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", false
	}
	if len(body.Images) == 0 || body.Images[0] == "" {
		return "", false
	}
	return body.Images[0], true
}

func parseSingleImage(raw []byte) (string, bool) {
	var body singleImageBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", false
	}
	if body.Image == "" {
		return "", false
	}
	return asDataURL(body.Image), true
}

// asDataURL wraps a base64 payload as a PNG data URL unless it already is a
// data URL or remote URI.
func asDataURL(image string) string {
	if strings.HasPrefix(image, "data:") || strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return image
	}
	return "data:image/png;base64," + image
}
