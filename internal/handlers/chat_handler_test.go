package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Birzhan20/neuro-search-core/internal/models"
)

type stubResponder struct {
	resp     models.ChatResponse
	gotQuery string
	gotSID   string
	called   bool
}

func (s *stubResponder) Answer(_ context.Context, query, sessionID string) models.ChatResponse {
	s.called = true
	s.gotQuery = query
	s.gotSID = sessionID
	return s.resp
}

func doChat(t *testing.T, h *ChatHandler, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)
	return rec
}

func TestChat_ReturnsAnswer(t *testing.T) {
	stub := &stubResponder{resp: models.ChatResponse{
		Answer:    "Refunds are allowed within 30 days.",
		SessionID: "11111111-1111-1111-1111-111111111111",
		Sources: []models.Source{
			{DocName: "policy.txt", Page: 0, Score: 0.91},
		},
	}}
	h := NewChatHandler(stub, slog.Default())

	rec := doChat(t, h, []byte(`{"message":"What is the refund policy?","session_id":"s1"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "What is the refund policy?", stub.gotQuery)
	assert.Equal(t, "s1", stub.gotSID)

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Refunds are allowed within 30 days.", resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "policy.txt", resp.Sources[0].DocName)
}

func TestChat_EmptyMessage(t *testing.T) {
	stub := &stubResponder{}
	h := NewChatHandler(stub, slog.Default())

	rec := doChat(t, h, []byte(`{"message":"   "}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, stub.called)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
}

func TestChat_InvalidBody(t *testing.T) {
	stub := &stubResponder{}
	h := NewChatHandler(stub, slog.Default())

	rec := doChat(t, h, []byte("not json"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, stub.called)
}

func TestChat_MissingSessionIDIsAllowed(t *testing.T) {
	stub := &stubResponder{resp: models.ChatResponse{Answer: "hi", SessionID: "new"}}
	h := NewChatHandler(stub, slog.Default())

	rec := doChat(t, h, []byte(`{"message":"hello"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", stub.gotSID)
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	Health(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
