package solana

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeRPC answers JSON-RPC calls from a method -> result table and records the calls it saw.
type fakeRPC struct {
	t       *testing.T
	mu      sync.Mutex
	results map[string][]string
	calls   map[string]int
	params  map[string][]json.RawMessage
}

func newFakeRPC(t *testing.T) (*fakeRPC, *httptest.Server) {
	f := &fakeRPC{
		t:       t,
		results: map[string][]string{},
		calls:   map[string]int{},
		params:  map[string][]json.RawMessage{},
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

// on queues results for method; the last one repeats.
func (f *fakeRPC) on(method string, results ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[method] = append(f.results[method], results...)
}

func (f *fakeRPC) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeRPC) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Errorf("decode rpc request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.calls[req.Method]++
	f.params[req.Method] = append(f.params[req.Method], req.Params)
	queue := f.results[req.Method]
	var result string
	switch len(queue) {
	case 0:
	case 1:
		result = queue[0]
	default:
		result = queue[0]
		f.results[req.Method] = queue[1:]
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if result == "" {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"error":{"code":-32601,"message":"method not found"}}`))
		return
	}
	_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + result + `}`))
}
