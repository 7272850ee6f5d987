package utils

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

func GenerateULIDString() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.DefaultEntropy()).String()
}

func GetStringPointer(text string) *string {
	return &text
}

func GetBooleanPointer(data bool) *bool {
	return &data
}

func GetFloat64Pointer(data float64) *float64 {
	return &data
}

func GetInt64Pointer(data int64) *int64 {
	return &data
}

// DecodeBase64Image accepts raw base64 payloads with or without a data URI
// prefix ("data:image/png;base64,....") and returns the decoded bytes.
func DecodeBase64Image(payload string) ([]byte, error) {
	if idx := strings.Index(payload, ","); idx != -1 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}
	if payload == "" {
		return nil, errors.New("empty image payload")
	}
	return base64.StdEncoding.DecodeString(payload)
}

func HasItemString(arr *[]string, target string) bool {
	if arr == nil {
		return false
	}
	for _, v := range *arr {
		if v == target {
			return true
		}
	}
	return false
}
