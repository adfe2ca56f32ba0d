package assistant

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/careline/internal/domain"
)

func newTestServer(t *testing.T, p *pipeline) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(p.svc).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postText(t *testing.T, srv *httptest.Server, query, sessionID string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/text?query="+query, nil)
	require.NoError(t, err)
	if sessionID != "" {
		req.Header.Set("session-id", sessionID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func postAudio(t *testing.T, srv *httptest.Server, payload []byte, sessionID string) *http.Response {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "recording.wav")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/talk", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if sessionID != "" {
		req.Header.Set("session-id", sessionID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestTextEndpointStreamsAudio(t *testing.T) {
	p := newPipeline(t, domain.NewReplyDecision("hello back"))
	srv := newTestServer(t, p)

	resp := postText(t, srv, "hi", "sess-1")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, "inline; filename=response.mp3", resp.Header.Get("Content-Disposition"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "mp3-amp3-b", string(body))
}

func TestTextEndpointRequiresSessionHeader(t *testing.T) {
	p := newPipeline(t, domain.NewReplyDecision("ok"))
	srv := newTestServer(t, p)

	resp := postText(t, srv, "hi", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, p.decider.calls)
}

func TestTextEndpointRequiresQuery(t *testing.T) {
	p := newPipeline(t, domain.NewReplyDecision("ok"))
	srv := newTestServer(t, p)

	resp := postText(t, srv, "", "sess-1")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTalkEndpointRejectsEmptyAudio(t *testing.T) {
	p := newPipeline(t, domain.NewReplyDecision("ok"))
	srv := newTestServer(t, p)

	resp := postAudio(t, srv, nil, "sess-1")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Empty audio file")
	assert.Zero(t, p.transcriber.calls)
}

func TestTalkEndpointTranscribesAndStreams(t *testing.T) {
	p := newPipeline(t, domain.NewReplyDecision("heard you"))
	p.transcriber.text = "find hospitals"
	srv := newTestServer(t, p)

	resp := postAudio(t, srv, []byte("wav-bytes"), "sess-1")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "mp3-amp3-b", string(body))
	assert.Equal(t, 1, p.transcriber.calls)
}

func TestPipelineFailureReturns500WithMessage(t *testing.T) {
	p := newPipeline(t, domain.NewReplyDecision("ok"))
	p.decider.err = errors.New("model down")
	srv := newTestServer(t, p)

	resp := postText(t, srv, "hi", "sess-1")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Internal Server Error")
	assert.Contains(t, string(body), "model down")
}
