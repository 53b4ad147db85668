package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseRequestBody(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantJSON bool
		want     map[string]string
	}{
		{
			name: "form",
			body: "description=Lunch+out&amount=12.50&category=Food",
			want: map[string]string{"description": "Lunch out", "amount": "12.50", "category": "Food"},
		},
		{
			name:     "json with numeric amount",
			body:     `{"description":" Taxi ","amount":30,"category":"Travel"}`,
			wantJSON: true,
			want:     map[string]string{"description": "Taxi", "amount": "30", "category": "Travel"},
		},
		{
			name: "control characters dropped",
			body: "description=a%00b%07c",
			want: map[string]string{"description": "abc", "missing": ""},
		},
		{
			name: "empty",
			body: "",
			want: map[string]string{"description": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(tt.body))
			p, err := ParseRequestBody(r)
			if err != nil {
				t.Fatalf("ParseRequestBody: %v", err)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
			for k, v := range tt.want {
				if got := p.Get(k); got != v {
					t.Errorf("Get(%q) = %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestParseRequestBody_BadJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(`{"description":`))
	if _, err := ParseRequestBody(r); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}
