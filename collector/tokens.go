package collector

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
)

const bybitInstrumentsURL = "https://api.bybit.com/v5/market/instruments-info?category=spot"

// TokenListUpdater refreshes the known crypto token universe from Bybit's
// spot instruments and writes it to a newline-separated file the token
// matcher reads.
type TokenListUpdater struct {
	client   *http.Client
	baseURL  string
	filePath string
}

func NewTokenListUpdater(filePath string) *TokenListUpdater {
	return &TokenListUpdater{
		client:   &http.Client{Timeout: 15 * time.Second},
		baseURL:  bybitInstrumentsURL,
		filePath: filePath,
	}
}

// NewTokenListUpdaterForURL is the test constructor.
func NewTokenListUpdaterForURL(filePath string, baseURL string) *TokenListUpdater {
	return &TokenListUpdater{client: &http.Client{}, baseURL: baseURL, filePath: filePath}
}

type instrumentsResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol string `json:"symbol"`
		} `json:"list"`
	} `json:"result"`
}

// Run fetches the spot instrument list and persists the base currencies of
// all USDT pairs. Returns the number of tokens written.
func (u *TokenListUpdater) Run(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", u.baseURL, nil)
	if err != nil {
		return 0, err
	}

	res, err := u.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "fail to request spot instruments")
	}
	defer res.Body.Close()

	data, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return 0, err
	}
	if res.StatusCode >= 300 {
		return 0, errors.Errorf("bybit non-200 http code: %d", res.StatusCode)
	}

	parsed := instrumentsResponse{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return 0, errors.Wrap(err, "fail to decode spot instruments")
	}
	if parsed.RetCode != 0 {
		return 0, errors.Errorf("bybit api error: %s", parsed.RetMsg)
	}

	tokens := extractBaseTokens(parsed)
	if len(tokens) == 0 {
		return 0, errors.New("spot instrument list yielded no tokens")
	}

	if err := os.MkdirAll(filepath.Dir(u.filePath), 0755); err != nil {
		return 0, errors.Wrap(err, "fail to create token list directory")
	}
	if err := ioutil.WriteFile(u.filePath, []byte(strings.Join(tokens, "\n")), 0644); err != nil {
		return 0, errors.Wrap(err, "fail to write token list")
	}
	Logger.Log.Infof("token list refreshed: %d tokens", len(tokens))
	return len(tokens), nil
}

// extractBaseTokens keeps the base currency of every USDT spot pair.
func extractBaseTokens(parsed instrumentsResponse) []string {
	tokens := []string{}
	for _, inst := range parsed.Result.List {
		if strings.HasSuffix(inst.Symbol, "USDT") {
			tokens = append(tokens, strings.TrimSuffix(inst.Symbol, "USDT"))
		}
	}
	return tokens
}
