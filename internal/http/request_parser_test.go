package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
)

func TestParsePageParams(t *testing.T) {
	tests := []struct {
		name     string
		query    url.Values
		wantPage int
		wantSize int
		wantErr  bool
	}{
		{
			name:     "defaults",
			query:    url.Values{},
			wantPage: 0,
			wantSize: DefaultPageSize,
		},
		{
			name:     "explicit values",
			query:    url.Values{"page": {"3"}, "size": {"10"}},
			wantPage: 3,
			wantSize: 10,
		},
		{
			name:    "negative page",
			query:   url.Values{"page": {"-1"}},
			wantErr: true,
		},
		{
			name:    "non numeric size",
			query:   url.Values{"size": {"ten"}},
			wantErr: true,
		},
		{
			name:    "size over the cap",
			query:   url.Values{"size": {"101"}},
			wantErr: true,
		},
		{
			name:     "largest page",
			query:    url.Values{"page": {strconv.Itoa(MaxPage)}, "size": {"100"}},
			wantPage: MaxPage,
			wantSize: 100,
		},
		{
			name:    "page whose offset overflows",
			query:   url.Values{"page": {"92233720368547759"}, "size": {"100"}},
			wantErr: true,
		},
		{
			name:    "zero size",
			query:   url.Values{"size": {"0"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageParams(tt.query)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Page != tt.wantPage || got.Size != tt.wantSize {
				t.Errorf("got page=%d size=%d, want page=%d size=%d", got.Page, got.Size, tt.wantPage, tt.wantSize)
			}
		})
	}
}

func TestParsePaymentFilters(t *testing.T) {
	q := url.Values{
		"search":   {"  pizza\x00 "},
		"category": {"food"},
		"dateFrom": {"2025-01-01"},
		"dateTo":   {"2025-01-31"},
	}
	f, err := ParsePaymentFilters(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Search != "pizza" {
		t.Errorf("Search = %q, want %q", f.Search, "pizza")
	}
	if f.Category != "food" || f.Wallet != "" {
		t.Errorf("unexpected category/wallet: %+v", f)
	}
	if f.DateFrom != "2025-01-01" || f.DateTo != "2025-01-31" {
		t.Errorf("unexpected dates: %+v", f)
	}

	if _, err := ParsePaymentFilters(url.Values{"dateTo": {"31/01/2025"}}); err == nil {
		t.Error("expected error for malformed dateTo")
	}
}

func TestDecodeJSONBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"name":"Main"}`},
		{name: "empty", body: ``, wantErr: "empty"},
		{name: "malformed", body: `{"name":`, wantErr: "invalid JSON"},
		{name: "unknown field", body: `{"name":"Main","color":"red"}`, wantErr: "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/wallets", strings.NewReader(tt.body))
			var v walletRequest
			err := DecodeJSONBody(httptest.NewRecorder(), r, &v)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if v.Name != "Main" {
					t.Errorf("Name = %q", v.Name)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  hello  ":      "hello",
		"a\x01b":         "ab",
		"line\nbreak":    "line\nbreak",
		"tab\tseparated": "tab\tseparated",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}
