package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

func compressedHandler(payload string) http.Handler {
	return Compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
}

func TestCompressionNegotiation(t *testing.T) {
	payload := `{"items":[` + strings.Repeat(`{"id":1,"name":"Wireless Mouse","price":"24.99"},`, 199) +
		`{"id":1,"name":"Wireless Mouse","price":"24.99"}]}`

	tests := []struct {
		name           string
		acceptEncoding string
		wantEncoding   string
	}{
		{name: "brotli preferred", acceptEncoding: "gzip, br", wantEncoding: "br"},
		{name: "gzip fallback", acceptEncoding: "gzip", wantEncoding: "gzip"},
		{name: "identity", acceptEncoding: "", wantEncoding: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
			if tc.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tc.acceptEncoding)
			}
			rr := httptest.NewRecorder()
			compressedHandler(payload).ServeHTTP(rr, req)

			if got := rr.Header().Get("Content-Encoding"); got != tc.wantEncoding {
				t.Fatalf("Content-Encoding = %q, want %q", got, tc.wantEncoding)
			}

			var body []byte
			var err error
			switch tc.wantEncoding {
			case "br":
				body, err = io.ReadAll(brotli.NewReader(rr.Body))
			case "gzip":
				gr, gzErr := gzip.NewReader(rr.Body)
				if gzErr != nil {
					t.Fatalf("gzip reader: %v", gzErr)
				}
				defer gr.Close()
				body, err = io.ReadAll(gr)
			default:
				body, err = io.ReadAll(rr.Body)
			}
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if string(body) != payload {
				t.Error("decompressed body does not match payload")
			}
		})
	}
}

func TestCompressionShrinksPayload(t *testing.T) {
	payload := strings.Repeat(`{"sku":"SKU-1000","category":"Electronics"}`, 500)

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	compressedHandler(payload).ServeHTTP(rr, req)

	if rr.Body.Len() >= len(payload)/2 {
		t.Errorf("compressed size %d not under half of %d", rr.Body.Len(), len(payload))
	}
}
