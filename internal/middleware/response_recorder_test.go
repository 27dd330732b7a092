package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseRecorder_TracksFirstStatusAndBytes(t *testing.T) {
	w := httptest.NewRecorder()
	rr := newResponseRecorder(w)

	if rr.started() {
		t.Fatal("new recorder should not be started")
	}

	rr.WriteHeader(http.StatusCreated)
	rr.WriteHeader(http.StatusInternalServerError)
	rr.Write([]byte(`{"id":"c-1"}`))

	if rr.status != http.StatusCreated {
		t.Errorf("status = %d, want %d", rr.status, http.StatusCreated)
	}
	if rr.bytes != len(`{"id":"c-1"}`) {
		t.Errorf("bytes = %d, want %d", rr.bytes, len(`{"id":"c-1"}`))
	}
	if !rr.started() {
		t.Error("recorder should be started after WriteHeader")
	}
}

func TestResponseRecorder_WriteWithoutHeaderIs200(t *testing.T) {
	rr := newResponseRecorder(httptest.NewRecorder())

	rr.Write([]byte("ok"))

	if rr.status != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.status, http.StatusOK)
	}
	if !rr.started() {
		t.Error("recorder should be started after Write")
	}
}

func TestResponseRecorder_FlushAndUnwrap(t *testing.T) {
	w := httptest.NewRecorder()
	rr := newResponseRecorder(w)

	if err := http.NewResponseController(rr).Flush(); err != nil {
		t.Fatalf("Flush via ResponseController: %v", err)
	}

	if !w.Flushed {
		t.Error("expected underlying writer to be flushed")
	}
	if rr.Unwrap() != w {
		t.Error("Unwrap should return the underlying writer")
	}
	if !rr.started() {
		t.Error("flushed recorder should be started")
	}
}
