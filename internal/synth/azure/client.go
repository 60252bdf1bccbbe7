package azure

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/altavoxlabs/altavox-core/internal/config"
	"github.com/altavoxlabs/altavox-core/internal/synth"
	"github.com/google/uuid"
)

const defaultSynthURL = "https://%s.tts.speech.microsoft.com/cognitiveservices/v1"

var outputFormats = map[string]string{
	"mp3":  "audio-24khz-48kbitrate-mono-mp3",
	"opus": "audio-24khz-16bit-48kbps-mono-opus",
	"webm": "webm-24khz-16bit-mono-opus",
	"wav":  "riff-24khz-16bit-mono-pcm",
}

// Client synthesizes speech through the cognitive-services endpoint using
// credentials issued by the signed token endpoint.
type Client struct {
	tokenURL  string
	userAgent string
	synthURL  string
	http      *http.Client
	creds     *CredentialCache
	logger    *slog.Logger
}

func NewClient(cfg config.BackendConfig, refreshSkew time.Duration, logger *slog.Logger) *Client {
	c := &Client{
		tokenURL:  cfg.TokenURL,
		userAgent: cfg.UserAgent,
		synthURL:  defaultSynthURL,
		http:      &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
		logger:    logger.With(slog.String("component", "azure-synth")),
	}
	c.creds = NewCredentialCache(refreshSkew, c.issueCredential)
	return c
}

// Credentials exposes the cache for forced invalidation.
func (c *Client) Credentials() *CredentialCache {
	return c.creds
}

type endpointResponse struct {
	Region string `json:"r"`
	Token  string `json:"t"`
}

func (c *Client) issueCredential(ctx context.Context) (*Credential, error) {
	nonce := newNonce()
	signature, err := signRequest(c.tokenURL, time.Now(), nonce)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", "en-US")
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-ClientVersion", "4.0.530a 5fe1dc6c")
	req.Header.Set("X-ClientTraceId", uuid.NewString())
	req.Header.Set("X-HomeGeographicRegion", "en-US")
	req.Header.Set("X-MT-Signature", signature)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &synth.Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var ep endpointResponse
	if err := json.Unmarshal(body, &ep); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if ep.Region == "" || ep.Token == "" {
		return nil, fmt.Errorf("token response missing region or token")
	}

	expiresAt, err := tokenExpiry(ep.Token)
	if err != nil {
		return nil, fmt.Errorf("decode token expiry: %w", err)
	}

	c.logger.Info("credential refreshed",
		slog.String("region", ep.Region),
		slog.Time("expires_at", expiresAt))

	return &Credential{Region: ep.Region, Token: ep.Token, ExpiresAt: expiresAt}, nil
}

// tokenExpiry reads the exp claim out of the compact token's payload segment.
func tokenExpiry(token string) (time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("token is not a three-segment JWT")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}, err
	}
	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.Exp == 0 {
		return time.Time{}, fmt.Errorf("token has no exp claim")
	}
	return time.Unix(claims.Exp, 0), nil
}

func (c *Client) Synthesize(ctx context.Context, req synth.Request) ([]byte, error) {
	cred, err := c.creds.Get(ctx)
	if err != nil {
		return nil, err
	}

	format, ok := outputFormats[req.Format]
	if !ok {
		format = outputFormats["mp3"]
	}

	body := buildSSML(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf(c.synthURL, cred.Region), strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+cred.Token)
	httpReq.Header.Set("Content-Type", "application/ssml+xml")
	httpReq.Header.Set("X-Microsoft-OutputFormat", format)
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("synthesis endpoint: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesis response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			c.creds.Invalidate()
		}
		return nil, &synth.Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(audio))}
	}
	return audio, nil
}

func buildSSML(req synth.Request) string {
	rate := req.Rate
	if rate == "" {
		rate = "+0%"
	}
	pitch := req.Pitch
	if pitch == "" {
		pitch = "+0%"
	}

	var b strings.Builder
	b.WriteString(`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xmlns:mstts='https://www.w3.org/2001/mstts' xml:lang='en-US'>`)
	fmt.Fprintf(&b, `<voice name='%s'>`, escapeXML(req.Voice))
	fmt.Fprintf(&b, `<prosody rate='%s' pitch='%s'>`, escapeXML(rate), escapeXML(pitch))
	if req.Style != "" {
		fmt.Fprintf(&b, `<mstts:express-as style='%s'>%s</mstts:express-as>`,
			escapeXML(req.Style), escapeXML(req.Text))
	} else {
		b.WriteString(escapeXML(req.Text))
	}
	b.WriteString(`</prosody></voice></speak>`)
	return b.String()
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

func escapeXML(s string) string {
	return xmlReplacer.Replace(s)
}
