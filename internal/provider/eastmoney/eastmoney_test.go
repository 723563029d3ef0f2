package eastmoney

import (
	"testing"

	"github.com/Haoqi7/FundQuant-Pro/internal/provider"
)

func TestEastmoney_ImplementsTransport(t *testing.T) {
	var _ provider.Transport = (*Eastmoney)(nil)
}

func TestEastmoney_Name(t *testing.T) {
	e := New(provider.Config{})
	if e.Name() != "eastmoney" {
		t.Errorf("expected 'eastmoney', got '%s'", e.Name())
	}
}

func TestJsonpRe(t *testing.T) {
	body := []byte(`jsonpgz({"fundcode":"161725","name":"招商中证白酒","gsz":"1.1440","gszzl":"0.52","gztime":"2024-06-21 15:00"});`)

	m := jsonpRe.FindSubmatch(body)
	if m == nil {
		t.Fatal("jsonpgz payload should match")
	}
	if string(m[1])[0] != '{' {
		t.Errorf("captured group should be the JSON body, got %q", m[1])
	}

	if jsonpRe.FindSubmatch([]byte(`<html>error</html>`)) != nil {
		t.Error("non-jsonp payload should not match")
	}
}

func TestStockCodesRe(t *testing.T) {
	body := []byte(`var ishb=false;var stockCodes=["600519","000858","00700"];var zqCodes="";`)

	m := stockCodesRe.FindSubmatch(body)
	if m == nil {
		t.Fatal("stockCodes array should match")
	}

	codes := quotedRe.FindAllSubmatch(m[1], -1)
	if len(codes) != 3 {
		t.Fatalf("expected 3 codes, got %d", len(codes))
	}
	if string(codes[0][1]) != "600519" || string(codes[2][1]) != "00700" {
		t.Errorf("unexpected codes: %q, %q", codes[0][1], codes[2][1])
	}
}
