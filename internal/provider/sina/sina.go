package sina

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
	"github.com/Haoqi7/FundQuant-Pro/internal/provider"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

const (
	quoteURL   = "https://hq.sinajs.cn/list=%s"
	suggestURL = "https://suggest3.sinajs.cn/suggest/type=21,22&key=%s"
)

// hq lines look like: var hq_str_f_161725="name,1.1440,2.1230,1.1390,2024-06-21";
var hqLineRe = regexp.MustCompile(`hq_str_([A-Za-z0-9_]+)="([^"]*)"`)

// Sina is the tertiary quote transport and the primary instrument-quote
// transport for the holdings pipeline. Responses are GBK encoded and
// require a finance.sina.com.cn referer.
type Sina struct {
	client *http.Client
}

// New creates a new Sina transport
func New(cfg provider.Config) *Sina {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Sina{
		client: &http.Client{Timeout: timeout},
	}
}

func (s *Sina) Name() string {
	return "sina"
}

func (s *Sina) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Referer", "https://finance.sina.com.cn/")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("status %d from %s", resp.StatusCode, url))
	}

	// Quote lines are GBK encoded.
	decoded, err := io.ReadAll(transform.NewReader(resp.Body, simplifiedchinese.GBK.NewDecoder()))
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	return decoded, nil
}

// parseLines splits an hq response into per-instrument field slices.
func parseLines(body []byte) map[string][]string {
	lines := make(map[string][]string)
	for _, m := range hqLineRe.FindAllStringSubmatch(string(body), -1) {
		if m[2] == "" {
			continue
		}
		lines[m[1]] = strings.Split(m[2], ",")
	}
	return lines
}

// FetchQuote fetches a fund's published net value via the f_ feed.
// Sina carries daily net values rather than intraday estimates, so the
// change is computed against the prior value.
func (s *Sina) FetchQuote(ctx context.Context, code string) (core.Quote, error) {
	body, err := s.get(ctx, fmt.Sprintf(quoteURL, "f_"+code))
	if err != nil {
		return core.Quote{}, err
	}

	parts, ok := parseLines(body)["f_"+code]
	if !ok || len(parts) < 5 {
		return core.Quote{}, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("no fund line for %s", code))
	}

	latest, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || latest < 0 {
		return core.Quote{}, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("bad net value for %s", code))
	}
	prior, _ := strconv.ParseFloat(parts[3], 64)

	changePct := 0.0
	if prior > 0 {
		changePct = (latest - prior) / prior * 100
	}

	return core.Quote{
		Code:      code,
		Source:    core.SourceSina,
		EstNav:    latest,
		ChangePct: changePct,
		AsOf:      parts[4],
		Name:      parts[0],
	}, nil
}

// Search queries the secondary suggestion index.
func (s *Sina) Search(ctx context.Context, keyword string) ([]core.FundMeta, error) {
	body, err := s.get(ctx, fmt.Sprintf(suggestURL, url.QueryEscape(keyword)))
	if err != nil {
		return nil, err
	}

	text := string(body)
	start := strings.Index(text, `"`)
	end := strings.LastIndex(text, `"`)
	if start < 0 || end <= start {
		return nil, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("suggest payload malformed"))
	}

	var results []core.FundMeta
	for _, entry := range strings.Split(text[start+1:end], ";") {
		parts := strings.Split(entry, ",")
		if len(parts) < 3 || parts[0] == "" || parts[2] == "" {
			continue
		}
		results = append(results, core.FundMeta{
			Code:   parts[2],
			Name:   parts[0],
			Type:   "基金",
			Sector: "综合",
		})
	}
	return results, nil
}

// FetchConstituents is not offered by this transport.
func (s *Sina) FetchConstituents(ctx context.Context, fundCode string) ([]string, error) {
	return nil, core.ErrUnsupported
}

// FetchInstrumentQuotes fetches stock quotes for mapped instrument
// codes (sh/sz/hk prefixed). HK lines carry the display name at index 1
// and the change percentage at index 8; A-share lines carry the name at
// index 0 with the change computed from prior close and last price.
func (s *Sina) FetchInstrumentQuotes(ctx context.Context, codes []string) (map[string]core.InstrumentQuote, error) {
	if len(codes) == 0 {
		return map[string]core.InstrumentQuote{}, nil
	}

	body, err := s.get(ctx, fmt.Sprintf(quoteURL, strings.Join(codes, ",")))
	if err != nil {
		return nil, err
	}

	lines := parseLines(body)
	quotes := make(map[string]core.InstrumentQuote, len(lines))
	for _, code := range codes {
		parts, ok := lines[code]
		if !ok {
			continue
		}

		if strings.HasPrefix(code, "hk") {
			if len(parts) < 9 {
				continue
			}
			pct, _ := strconv.ParseFloat(parts[8], 64)
			quotes[code] = core.InstrumentQuote{Name: parts[1], ChangePct: pct}
			continue
		}

		if len(parts) < 4 {
			continue
		}
		prevClose, _ := strconv.ParseFloat(parts[2], 64)
		last, _ := strconv.ParseFloat(parts[3], 64)
		pct := 0.0
		if prevClose > 0 {
			pct = (last - prevClose) / prevClose * 100
		}
		quotes[code] = core.InstrumentQuote{Name: parts[0], ChangePct: pct}
	}
	return quotes, nil
}
