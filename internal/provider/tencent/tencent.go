package tencent

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
	quoteURL   = "https://qt.gtimg.cn/q=%s"
	suggestURL = "https://smartbox.gtimg.cn/s3/?v=2&t=jj&q=%s"
)

// qt lines look like: v_jj161725="161725~name~1.1440~1.1390~...";
var qtLineRe = regexp.MustCompile(`v_([A-Za-z0-9_]+)="([^"]*)"`)

// Tencent is the secondary quote transport plus the fast suggestion
// index used first for search. Responses are GBK encoded.
type Tencent struct {
	client *http.Client
}

// New creates a new Tencent transport
func New(cfg provider.Config) *Tencent {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Tencent{
		client: &http.Client{Timeout: timeout},
	}
}

func (t *Tencent) Name() string {
	return "tencent"
}

func (t *Tencent) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Referer", "https://gu.qq.com/")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("status %d from %s", resp.StatusCode, url))
	}

	decoded, err := io.ReadAll(transform.NewReader(resp.Body, simplifiedchinese.GBK.NewDecoder()))
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	return decoded, nil
}

func parseLines(body []byte) map[string][]string {
	lines := make(map[string][]string)
	for _, m := range qtLineRe.FindAllStringSubmatch(string(body), -1) {
		if m[2] == "" {
			continue
		}
		lines[m[1]] = strings.Split(m[2], "~")
	}
	return lines
}

// FetchQuote fetches a fund's net value via the jj_ feed. Like sina,
// tencent publishes daily values, so the change is computed against the
// prior value.
func (t *Tencent) FetchQuote(ctx context.Context, code string) (core.Quote, error) {
	body, err := t.get(ctx, fmt.Sprintf(quoteURL, "jj"+code))
	if err != nil {
		return core.Quote{}, err
	}

	parts, ok := parseLines(body)["jj"+code]
	if !ok || len(parts) < 6 {
		return core.Quote{}, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("no fund line for %s", code))
	}

	// Fields: 0 code, 1 name, 2 latest value, 3 prior value, 4 date.
	latest, err := strconv.ParseFloat(parts[2], 64)
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
		Source:    core.SourceTencent,
		EstNav:    latest,
		ChangePct: changePct,
		AsOf:      parts[4],
		Name:      parts[1],
	}, nil
}

// Search queries the smartbox suggestion index, which answers faster
// than the catalog search but with less metadata.
func (t *Tencent) Search(ctx context.Context, keyword string) ([]core.FundMeta, error) {
	body, err := t.get(ctx, fmt.Sprintf(suggestURL, url.QueryEscape(keyword)))
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
	for _, entry := range strings.Split(text[start+1:end], "^") {
		// Entry fields: market~code~name~pinyin~category.
		parts := strings.Split(entry, "~")
		if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
			continue
		}
		name, err := url.QueryUnescape(parts[2])
		if err != nil || name == "" {
			name = parts[2]
		}
		results = append(results, core.FundMeta{
			Code:   parts[1],
			Name:   name,
			Type:   "基金",
			Sector: "综合",
		})
	}
	return results, nil
}

// FetchConstituents is not offered by this transport.
func (t *Tencent) FetchConstituents(ctx context.Context, fundCode string) ([]string, error) {
	return nil, core.ErrUnsupported
}

// FetchInstrumentQuotes fetches stock quotes as the fallback behind
// sina for the holdings pipeline. The change percentage is computed
// from prior close (field 4) and last price (field 3).
func (t *Tencent) FetchInstrumentQuotes(ctx context.Context, codes []string) (map[string]core.InstrumentQuote, error) {
	if len(codes) == 0 {
		return map[string]core.InstrumentQuote{}, nil
	}

	body, err := t.get(ctx, fmt.Sprintf(quoteURL, strings.Join(codes, ",")))
	if err != nil {
		return nil, err
	}

	lines := parseLines(body)
	quotes := make(map[string]core.InstrumentQuote, len(lines))
	for _, code := range codes {
		parts, ok := lines[code]
		if !ok || len(parts) < 5 {
			continue
		}
		last, _ := strconv.ParseFloat(parts[3], 64)
		prevClose, _ := strconv.ParseFloat(parts[4], 64)
		pct := 0.0
		if prevClose > 0 {
			pct = (last - prevClose) / prevClose * 100
		}
		quotes[code] = core.InstrumentQuote{Name: parts[1], ChangePct: pct}
	}
	return quotes, nil
}
