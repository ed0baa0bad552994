package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendTemplate(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.ABC"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "12345", "tok", "", srv.Client())
	id, err := c.SendTemplate(context.Background(), "+919876543210", "order_shipped", []string{"Asha", "10001"})
	require.NoError(t, err)
	assert.Equal(t, "wamid.ABC", id)

	assert.Equal(t, "whatsapp", got.MessagingProduct)
	assert.Equal(t, "919876543210", got.To)
	assert.Equal(t, "template", got.Type)
	assert.Equal(t, "order_shipped", got.Template.Name)
	assert.Equal(t, DefaultLanguage, got.Template.Language.Code)
	require.Len(t, got.Template.Components, 1)
	assert.Equal(t, "body", got.Template.Components[0].Type)
	assert.Equal(t, []textParam{{Type: "text", Text: "Asha"}, {Type: "text", Text: "10001"}}, got.Template.Components[0].Parameters)
}

func TestSendTemplate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Template name does not exist","type":"OAuthException","code":132001}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "12345", "tok", "en", srv.Client()).SendTemplate(context.Background(), "+911", "nope", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "132001", apiErr.ErrorCode())
	assert.Equal(t, "OAuthException", apiErr.Type)
}

func TestSendTemplate_NonJSONFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "12345", "tok", "en", srv.Client()).SendTemplate(context.Background(), "+911", "order_delivered", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "http_502", apiErr.ErrorCode())
	assert.Equal(t, "bad gateway", apiErr.Message)
}
