package pos

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/base64"
    "encoding/hex"
    "strings"
)

// VerifyHexHMAC checks a hex-encoded HMAC-SHA256 over the raw body.
// The comparison is case-insensitive on the provided signature.
func VerifyHexHMAC(secret string, body []byte, provided string) bool {
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write(body)
    expected := mac.Sum(nil)
    b, err := hex.DecodeString(strings.ToLower(provided))
    if err != nil {
        return false
    }
    return hmac.Equal(expected, b)
}

// SignHexHMAC returns lowercase hex of HMAC-SHA256 over body.
func SignHexHMAC(secret string, body []byte) string {
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write(body)
    return hex.EncodeToString(mac.Sum(nil))
}

// VerifyBase64HMAC checks a base64-encoded HMAC-SHA256 over url+body.
func VerifyBase64HMAC(secret, url string, body []byte, provided string) bool {
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write([]byte(url))
    mac.Write(body)
    expected := mac.Sum(nil)
    b, err := base64.StdEncoding.DecodeString(provided)
    if err != nil {
        return false
    }
    return hmac.Equal(expected, b)
}

// SignBase64HMAC returns base64 of HMAC-SHA256 over url+body.
func SignBase64HMAC(secret, url string, body []byte) string {
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write([]byte(url))
    mac.Write(body)
    return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
