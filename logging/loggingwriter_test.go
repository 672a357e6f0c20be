package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWritesAndCounts(t *testing.T) {
	rr := httptest.NewRecorder()
	w := &loggingWriter{writer: rr}

	body := "Hello, world!"
	w.Write([]byte(body))
	w.Write([]byte(body))

	assert.Equal(t, body+body, rr.Body.String())
	assert.Equal(t, int64(2*len(body)), w.bytes)
	assert.Equal(t, http.StatusOK, w.code)
}

func TestWritesAndStoresStatusCode(t *testing.T) {
	rr := httptest.NewRecorder()
	w := &loggingWriter{writer: rr}
	w.WriteHeader(http.StatusTeapot)

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, http.StatusTeapot, w.code)
}

func TestReturnsUnderlyingHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	w := &loggingWriter{writer: rr}
	w.Header().Set("X-Test-Header", "test-value")
	assert.Equal(t, "test-value", rr.Header().Get("X-Test-Header"))
}

func TestFlushesPartialPayload(t *testing.T) {
	rr := httptest.NewRecorder()
	w := &loggingWriter{writer: rr}
	w.Write([]byte("Hello, world!"))
	w.Flush()
	assert.True(t, rr.Flushed)
}
