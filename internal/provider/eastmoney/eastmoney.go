package eastmoney

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
	"github.com/tidwall/gjson"
)

const (
	estimateURL     = "https://fundgz.1234567.com.cn/js/%s.js?rt=%d"
	searchURL       = "https://fundsuggest.eastmoney.com/FundSearch/api/FundSearchAPI.ashx?m=1&key=%s"
	constituentsURL = "https://fund.eastmoney.com/pingzhongdata/%s.js"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// jsonpgz payloads arrive as jsonpgz({...}); with a JSON body inside.
var jsonpRe = regexp.MustCompile(`^jsonpgz\((.*)\);?\s*$`)

// pingzhongdata is a JS bundle; the constituent codes live in a
// stockCodes array literal.
var stockCodesRe = regexp.MustCompile(`var\s+stockCodes\s*=\s*\[([^\]]*)\]`)
var quotedRe = regexp.MustCompile(`"([0-9A-Za-z]+)"`)

// Eastmoney is the primary quote transport: the 1234567 realtime
// estimate feed plus the fund catalog search and pingzhongdata
// constituent bundles.
type Eastmoney struct {
	client *http.Client
}

// New creates a new Eastmoney transport
func New(cfg provider.Config) *Eastmoney {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Eastmoney{
		client: &http.Client{Timeout: timeout},
	}
}

func (e *Eastmoney) Name() string {
	return "eastmoney"
}

func (e *Eastmoney) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", "https://fund.eastmoney.com/")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("status %d from %s", resp.StatusCode, url))
	}
	return io.ReadAll(resp.Body)
}

// FetchQuote fetches the realtime valuation estimate for a fund.
func (e *Eastmoney) FetchQuote(ctx context.Context, code string) (core.Quote, error) {
	body, err := e.get(ctx, fmt.Sprintf(estimateURL, code, time.Now().UnixMilli()))
	if err != nil {
		return core.Quote{}, err
	}

	m := jsonpRe.FindSubmatch(body)
	if m == nil {
		return core.Quote{}, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("unexpected payload for %s", code))
	}

	data := gjson.ParseBytes(m[1])
	if data.Get("fundcode").String() != code {
		return core.Quote{}, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("payload code mismatch for %s", code))
	}

	estNav, err := strconv.ParseFloat(data.Get("gsz").String(), 64)
	if err != nil || estNav < 0 {
		return core.Quote{}, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("bad estimate for %s", code))
	}
	changePct, _ := strconv.ParseFloat(data.Get("gszzl").String(), 64)

	return core.Quote{
		Code:      code,
		Source:    core.SourceEastmoney,
		EstNav:    estNav,
		ChangePct: changePct,
		AsOf:      data.Get("gztime").String(),
		Name:      data.Get("name").String(),
	}, nil
}

// Search queries the fund catalog search API.
func (e *Eastmoney) Search(ctx context.Context, keyword string) ([]core.FundMeta, error) {
	body, err := e.get(ctx, fmt.Sprintf(searchURL, url.QueryEscape(keyword)))
	if err != nil {
		return nil, err
	}

	datas := gjson.GetBytes(body, "Datas")
	if !datas.Exists() {
		return nil, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("search payload missing Datas"))
	}

	var results []core.FundMeta
	datas.ForEach(func(_, item gjson.Result) bool {
		code := item.Get("CODE").String()
		name := item.Get("NAME").String()
		if code == "" || name == "" {
			return true
		}
		fundType := item.Get("FundBaseInfo.FTYPE").String()
		if fundType == "" {
			fundType = item.Get("CATEGORYDESC").String()
		}
		results = append(results, core.FundMeta{
			Code:   code,
			Name:   name,
			Type:   fundType,
			Sector: "综合",
		})
		return true
	})
	return results, nil
}

// FetchConstituents extracts the constituent stock codes from the
// fund's pingzhongdata bundle.
func (e *Eastmoney) FetchConstituents(ctx context.Context, fundCode string) ([]string, error) {
	body, err := e.get(ctx, fmt.Sprintf(constituentsURL, fundCode))
	if err != nil {
		return nil, err
	}

	m := stockCodesRe.FindSubmatch(body)
	if m == nil {
		return nil, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("no stockCodes in pingzhongdata for %s", fundCode))
	}

	var codes []string
	for _, q := range quotedRe.FindAllSubmatch(m[1], -1) {
		code := strings.TrimSpace(string(q[1]))
		if code != "" {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

// FetchInstrumentQuotes is not offered by this transport; stock-level
// quotes come from sina or tencent.
func (e *Eastmoney) FetchInstrumentQuotes(ctx context.Context, codes []string) (map[string]core.InstrumentQuote, error) {
	return nil, core.ErrUnsupported
}
