package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/config"
)

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"5511999", "5511999"},
		{"+55 (11) 99999-0000", "5511999990000"},
		{"5511999@s.whatsapp.net", "5511999"},
		{"120363025@g.us", "120363025@g.us"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeNumber(tt.input))
		})
	}
}

func TestEvolutionClient_Send(t *testing.T) {
	var gotPath, gotKey string
	var gotBody evolutionSendText
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewEvolutionClient(server.URL+"/", "secret", time.Second)
	err := client.Send(context.Background(), SendRequest{
		SessionName: "Sessao_01",
		Number:      "5511999",
		Text:        "Olá",
		MediaURL:    "https://cdn.example.com/a.png",
		MediaType:   "image",
	})

	require.NoError(t, err)
	assert.Equal(t, "/message/sendText/Sessao_01", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "5511999", gotBody.Number)
	require.Len(t, gotBody.Medias, 1)
	assert.Equal(t, "image", gotBody.Medias[0].MediaType)
}

func TestEvolutionClient_Send_NonSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "instance not connected", http.StatusBadRequest)
	}))
	defer server.Close()

	err := NewEvolutionClient(server.URL, "k", time.Second).Send(context.Background(), SendRequest{SessionName: "s", Number: "1", Text: "x"})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDispatch)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "instance not connected")
}

func TestEvolutionClient_Send_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	err := NewEvolutionClient(server.URL, "k", 50*time.Millisecond).Send(context.Background(), SendRequest{SessionName: "s", Number: "1", Text: "x"})
	assert.ErrorIs(t, err, apperrors.ErrDispatch)
}

func TestNewSender(t *testing.T) {
	logger := zaptest.NewLogger(t)

	sender, err := NewSender(config.ProviderConfig{Driver: "log"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, sender)
	assert.NoError(t, sender.Send(context.Background(), SendRequest{Number: "1"}))

	sender, err = NewSender(config.ProviderConfig{Driver: "Evolution", BaseURL: "http://evo:8080", Timeout: 10 * time.Second}, logger)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, sender.(*EvolutionClient).client.Timeout)

	_, err = NewSender(config.ProviderConfig{Driver: "evolution"}, logger)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)

	_, err = NewSender(config.ProviderConfig{Driver: "twilio"}, logger)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}
