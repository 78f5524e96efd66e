package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDeepLink(t *testing.T) {
	link, err := DeepLink("+593 99-123 4567", "Hola Ana, ¿cómo está?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/593991234567?text="))
	assert.NotContains(t, link, " ")

	_, err = DeepLink("sin número", "x")
	assert.Error(t, err)
}

func TestSendTextNotConfigured(t *testing.T) {
	c := NewClient("", "", zap.NewNop())
	_, err := c.SendText(context.Background(), SendTextInput{PhoneNumber: "593", Body: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSendText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/PHONE/messages", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "593991234567", body["to"])
		assert.Equal(t, "text", body["type"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := NewClient("token", "PHONE", zap.NewNop())
	c.baseURL = srv.URL

	id, err := c.SendText(context.Background(), SendTextInput{PhoneNumber: "+593 99 123 4567", Body: "Hola"})
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", id)
}

func TestSendTextAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid parameter","code":100}}`))
	}))
	defer srv.Close()

	c := NewClient("token", "PHONE", zap.NewNop())
	c.baseURL = srv.URL

	_, err := c.SendText(context.Background(), SendTextInput{PhoneNumber: "593", Body: "Hola"})
	assert.ErrorContains(t, err, "Invalid parameter")
}
