package instagram

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nkcr/igfeed/instagram/types"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the root of the private API.
const DefaultBaseURL = "https://i.instagram.com/api/v1/"

const defaultSigKeyVersion = "4"

// HTTPClient defines the function we expect from an HTTP client
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CallerConfig holds what the HTTP caller needs to authenticate and sign
// requests. The cookie is sent as is; obtaining it is the login's job.
type CallerConfig struct {
	BaseURL       string
	UserAgent     string
	Cookie        string
	SigKey        string
	SigKeyVersion string
}

// NewHTTPCaller returns a new initialized caller over HTTP
func NewHTTPCaller(config CallerConfig, client HTTPClient, logger zerolog.Logger) Caller {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}

	if config.SigKeyVersion == "" {
		config.SigKeyVersion = defaultSigKeyVersion
	}

	return &HTTPCaller{
		config: config,
		client: client,
		logger: logger.With().Str("role", "caller").Logger(),
	}
}

// HTTPCaller performs API calls over HTTP
//
// - implements instagram.Caller
type HTTPCaller struct {
	config CallerConfig
	client HTTPClient
	logger zerolog.Logger
}

// CallAPI implements instagram.Caller. Without params it sends a GET,
// otherwise a form POST, signed unless unsigned is set.
func (h *HTTPCaller) CallAPI(ctx context.Context, endpoint string,
	params *types.Params, unsigned bool) (types.Response, error) {

	u := h.config.BaseURL + endpoint

	var req *http.Request
	var err error

	if params == nil {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	} else {
		var body string

		body, err = h.encodeBody(params, unsigned)
		if err != nil {
			return nil, fmt.Errorf("failed to encode params: %v", err)
		}

		req, err = http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	if h.config.UserAgent != "" {
		req.Header.Set("User-Agent", h.config.UserAgent)
	}

	if h.config.Cookie != "" {
		req.Header.Set("Cookie", h.config.Cookie)
	}

	h.logger.Debug().Str("method", req.Method).Str("endpoint", endpoint).
		Bool("unsigned", unsigned).Msg("calling api")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to %s '%s': %v", req.Method, u, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	// ids do not fit in a float64
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	var res types.Response

	err = decoder.Decode(&res)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}

	return res, nil
}

// encodeBody returns the form body of a POST. Signed bodies wrap the JSON
// encoded params with their HMAC-SHA256 under the signature key.
func (h *HTTPCaller) encodeBody(params *types.Params, unsigned bool) (string, error) {
	if unsigned {
		return params.Encode(), nil
	}

	buf, err := json.Marshal(params.Map())
	if err != nil {
		return "", err
	}

	vals := url.Values{
		"ig_sig_key_version": []string{h.config.SigKeyVersion},
		"signed_body":        []string{sign(h.config.SigKey, buf) + "." + string(buf)},
	}

	return vals.Encode(), nil
}

func sign(key string, data []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(data)

	return hex.EncodeToString(mac.Sum(nil))
}

func statusError(resp *http.Response) error {
	buf, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("http request failed with status %s: %s", resp.Status, buf)
}
