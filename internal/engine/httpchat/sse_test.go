package httpchat

import (
	"reflect"
	"strings"
	"testing"
)

func collectSSE(t *testing.T, body string) []string {
	t.Helper()
	var payloads []string
	err := parseSSE(strings.NewReader(body), func(data string) error {
		payloads = append(payloads, data)
		return nil
	})
	if err != nil {
		t.Fatalf("parseSSE: %v", err)
	}
	return payloads
}

func TestParseSSEBasicFraming(t *testing.T) {
	body := "data: {\"a\":1}\n\ndata: {\"b\":2}\n\ndata: [DONE]\n"
	got := collectSSE(t, body)
	want := []string{`{"a":1}`, `{"b":2}`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("payloads = %q, want %q", got, want)
	}
}

func TestParseSSESpaceAfterColonOptional(t *testing.T) {
	body := "data:{\"a\":1}\ndata: {\"b\":2}\ndata:[DONE]\n"
	got := collectSSE(t, body)
	want := []string{`{"a":1}`, `{"b":2}`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("payloads = %q, want %q", got, want)
	}
}

func TestParseSSEMissingTerminator(t *testing.T) {
	body := "data: {\"a\":1}\n\ndata: {\"b\":2}\n"
	got := collectSSE(t, body)
	if len(got) != 2 {
		t.Errorf("payloads = %q, want both despite missing [DONE]", got)
	}
}

func TestParseSSETrailingDataWithoutNewline(t *testing.T) {
	body := "data: {\"a\":1}\ndata: {\"b\":2}"
	got := collectSSE(t, body)
	want := []string{`{"a":1}`, `{"b":2}`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("payloads = %q, want trailing buffer parsed", got)
	}
}

func TestParseSSESkipsNonDataLines(t *testing.T) {
	body := ": comment\nevent: message\nretry: 100\n\ndata: {\"a\":1}\n\ndata: [DONE]\n"
	got := collectSSE(t, body)
	if len(got) != 1 || got[0] != `{"a":1}` {
		t.Errorf("payloads = %q", got)
	}
}

func TestParseSSEStopsAtTerminator(t *testing.T) {
	body := "data: {\"a\":1}\ndata: [DONE]\ndata: {\"late\":true}\n"
	got := collectSSE(t, body)
	if len(got) != 1 {
		t.Errorf("payloads = %q, want parsing stopped at [DONE]", got)
	}
}

func TestParseSSECRLF(t *testing.T) {
	body := "data: {\"a\":1}\r\n\r\ndata: [DONE]\r\n"
	got := collectSSE(t, body)
	if len(got) != 1 || got[0] != `{"a":1}` {
		t.Errorf("payloads = %q", got)
	}
}
