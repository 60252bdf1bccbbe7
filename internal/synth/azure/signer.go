package azure

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const appID = "MSTranslatorAndroidApp"

// Shared key published with the translator mobile client; the token endpoint
// accepts requests signed with it.
const signingKey = "oik6PdDdMnOXemTbwvMn9de/h9lFnfBaCWbGMMZqqoSaQaqUOqjVGm5NqsmjcBI1x+sS9ugjB55HEJWRiFXYFw=="

// signRequest produces the X-MT-Signature value for a token-issuance call.
// The signed material is the lowercased app id, percent-encoded URL (scheme
// stripped), lowercase UTC date, and a random nonce.
func signRequest(rawURL string, now time.Time, nonce string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(signingKey)
	if err != nil {
		return "", fmt.Errorf("decode signing key: %w", err)
	}

	trimmed := strings.TrimPrefix(rawURL, "https://")
	encoded := url.QueryEscape(trimmed)
	date := formatSigningDate(now)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(strings.ToLower(appID + encoded + date + nonce)))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return appID + "::" + signature + "::" + date + "::" + nonce, nil
}

func formatSigningDate(now time.Time) string {
	return strings.ToLower(now.UTC().Format("Mon, 02 Jan 2006 15:04:05")) + " gmt"
}

func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
