package store

import (
	"encoding/base64"
	"encoding/json"

	appErrors "github.com/otslabs/tsgallery/pkg/errors"
)

// EncodeToken wraps backend continuation bytes as an opaque string.
func EncodeToken(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeToken unwraps an opaque continuation token.
func DecodeToken(token string) ([]byte, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, appErrors.NewBadRequest("invalid page token")
	}
	return raw, nil
}

type offsetToken struct {
	Offset int64 `json:"o"`
}

// EncodeOffsetToken builds a continuation token for offset-paged
// backends.
func EncodeOffsetToken(offset int64) string {
	raw, err := json.Marshal(offsetToken{Offset: offset})
	if err != nil {
		return ""
	}
	return EncodeToken(raw)
}

// DecodeOffsetToken recovers the offset carried by a token. An empty
// token means offset zero.
func DecodeOffsetToken(token string) (int64, error) {
	raw, err := DecodeToken(token)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}

	var t offsetToken
	if err := json.Unmarshal(raw, &t); err != nil {
		return 0, appErrors.NewBadRequest("invalid page token")
	}
	if t.Offset < 0 {
		return 0, appErrors.NewBadRequest("invalid page token")
	}
	return t.Offset, nil
}
