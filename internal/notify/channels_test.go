package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushChannelSend(t *testing.T) {
	var payload pushPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key=server-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch := NewPushChannel(PushConfig{Endpoint: server.URL, ServerKey: "server-key"})

	msg := Message{
		Title: "🔔 Someone's at the Door",
		Body:  "Doorbell pressed at front_door at 14:30:00",
		Data:  map[string]interface{}{"event_id": float64(42)},
	}
	require.NoError(t, ch.Send(context.Background(), "device-token", msg))

	assert.Equal(t, "device-token", payload.To)
	assert.Equal(t, "high", payload.Priority)
	assert.Equal(t, msg.Title, payload.Notification.Title)
	assert.Equal(t, msg.Body, payload.Notification.Body)
}

func TestPushChannelGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	ch := NewPushChannel(PushConfig{Endpoint: server.URL, ServerKey: "bad"})
	err := ch.Send(context.Background(), "device-token", Message{Title: "x", Body: "y"})
	assert.Error(t, err)
}

func TestSMSChannelSend(t *testing.T) {
	var gotTo, gotFrom, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "sid", user)
		assert.Equal(t, "token", pass)

		require.NoError(t, r.ParseForm())
		gotTo = r.FormValue("To")
		gotFrom = r.FormValue("From")
		gotBody = r.FormValue("Body")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	ch := NewSMSChannel(SMSConfig{
		GatewayURL: server.URL,
		AccountSID: "sid",
		AuthToken:  "token",
		From:       "+15550000000",
	})

	msg := Message{Title: "🚨 Motion Detected", Body: "Motion detected at yard at 02:05:00"}
	require.NoError(t, ch.Send(context.Background(), "+15551234567", msg))

	assert.Equal(t, "+15551234567", gotTo)
	assert.Equal(t, "+15550000000", gotFrom)
	assert.Equal(t, "🚨 Motion Detected: Motion detected at yard at 02:05:00", gotBody)
}

func TestSMSChannelGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	ch := NewSMSChannel(SMSConfig{GatewayURL: server.URL})
	err := ch.Send(context.Background(), "+15551234567", Message{Title: "x", Body: "y"})
	assert.Error(t, err)
}
