package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		BaseURL:   server.URL + "/api/",
		UploadURL: server.URL + "/autumn",
		Logger:    zaptest.NewLogger(t).Sugar(),
	})
	require.NoError(t, err)
	return client
}

func TestDoSendsTokenAndDecodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/@me", r.URL.Path)
		assert.Equal(t, "abc", r.Header.Get("x-session-token"))
		assert.Empty(t, r.Header.Get("x-bot-token"))
		w.Write([]byte(`{"_id":"U1","username":"alice"}`))
	})
	client.SetToken("abc", UserToken)

	var out struct {
		ID       string `json:"_id"`
		Username string `json:"username"`
	}
	require.NoError(t, client.Get(context.Background(), "users/@me", &out))
	assert.Equal(t, "U1", out.ID)
	assert.Equal(t, "alice", out.Username)
}

func TestBotTokenHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bot", r.Header.Get("x-bot-token"))
		assert.Empty(t, r.Header.Get("x-session-token"))
		w.WriteHeader(http.StatusNoContent)
	})
	client.SetToken("bot", BotToken)

	require.NoError(t, client.Delete(context.Background(), "channels/C1", nil))
}

func TestWithoutAuth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("x-session-token"))
		w.Write([]byte(`{}`))
	})
	client.SetToken("abc", UserToken)

	require.NoError(t, client.Get(context.Background(), "/", nil, WithoutAuth()))
}

func TestDoEncodesBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hi", body["content"])
		w.Write([]byte(`{"_id":"M1"}`))
	})

	var out struct {
		ID string `json:"_id"`
	}
	err := client.Post(context.Background(), "channels/C1/messages", map[string]string{"content": "hi"}, &out, WithIdempotencyKey("key-1"))
	require.NoError(t, err)
	assert.Equal(t, "M1", out.ID)
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantType     string
		wantPerm     string
		wantMessage  string
		unauthorized bool
		notFound     bool
	}{
		{"missing permission", http.StatusForbidden, `{"type":"MissingPermission","permission":"ManageServer"}`, ErrTypeMissingPermission, "ManageServer", "", false, false},
		{"unauthorized", http.StatusUnauthorized, `{"type":"InvalidSession"}`, ErrTypeInvalidSession, "", "", true, false},
		{"not found", http.StatusNotFound, `{"type":"NotFound"}`, ErrTypeNotFound, "", "", false, true},
		{"failed validation", http.StatusBadRequest, `{"type":"FailedValidation","error":"name: length too long"}`, ErrTypeFailedValidation, "", "name: length too long", false, false},
		{"non json body", http.StatusBadGateway, `<html>bad gateway</html>`, ErrTypeUnknown, "", "<html>bad gateway</html>", false, false},
		{"empty body", http.StatusInternalServerError, ``, ErrTypeUnknown, "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			err := client.Get(context.Background(), "servers/S1", nil)
			require.Error(t, err)

			var restErr *Error
			require.True(t, errors.As(err, &restErr))
			assert.Equal(t, tt.status, restErr.StatusCode)
			assert.Equal(t, tt.wantType, restErr.Type)
			assert.Equal(t, tt.wantPerm, restErr.Permission)
			assert.Equal(t, tt.wantMessage, restErr.Message)
			if tt.wantMessage != "" {
				assert.Contains(t, err.Error(), tt.wantMessage)
			}
			assert.Equal(t, tt.unauthorized, errors.Is(err, ErrUnauthorized))
			assert.Equal(t, tt.notFound, IsNotFound(err))
			assert.True(t, IsErrorType(err, tt.wantType))
		})
	}
}

func TestUpload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/autumn/attachments", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "cat.png", header.Filename)
		assert.Equal(t, "meow", string(data))
		w.Write([]byte(`{"id":"A1"}`))
	})

	id, err := client.Upload(context.Background(), "attachments", "cat.png", strings.NewReader("meow"))
	require.NoError(t, err)
	assert.Equal(t, "A1", id)
}

func TestUploadWithoutURL(t *testing.T) {
	client, err := New(Config{BaseURL: "http://localhost/api"})
	require.NoError(t, err)

	_, err = client.Upload(context.Background(), "attachments", "a.txt", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestArgumentErrorMessage(t *testing.T) {
	err := &ArgumentError{Op: "SendMessage", Field: "channel id", Reason: "can't be empty"}
	assert.Equal(t, "stoat: channel id can't be empty for the SendMessage request", err.Error())
}
