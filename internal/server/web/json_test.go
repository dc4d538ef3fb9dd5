package web

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func decodeTestJSON(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
}
