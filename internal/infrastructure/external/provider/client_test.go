package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coach-hub/science-coach-hub/internal/domain/shared"
)

func testClient(t *testing.T, handler http.HandlerFunc, structured bool) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		Endpoint:         srv.URL,
		APIKey:           "test-key",
		Model:            "test-model",
		StructuredOutput: structured,
	})
	return client, srv
}

func chatBody(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"content": content}},
		},
	})
	return string(b)
}

func TestClientConfigured(t *testing.T) {
	assert.False(t, NewClient(Config{}).Configured())
	assert.False(t, NewClient(Config{Endpoint: "http://x", APIKey: "k"}).Configured())
	assert.True(t, NewClient(Config{Endpoint: "http://x", APIKey: "k", Model: "m"}).Configured())
}

func TestCompleteUnconfigured(t *testing.T) {
	_, err := NewClient(Config{}).Complete(context.Background(), "system", nil, "hello")

	assert.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestCompleteParsesCoachPayload(t *testing.T) {
	payload := `{"reply":"Well done!","objective_met":true,"tasks":["Review chapter 3"]}`

	var gotReq completionRequest
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, chatBody(payload))
	}, true)

	result, err := client.Complete(context.Background(), "system prompt", []Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}, "The nucleus controls the cell")
	require.NoError(t, err)

	assert.Equal(t, "Well done!", result.Reply)
	assert.True(t, result.ObjectiveMet)
	assert.Equal(t, []string{"Review chapter 3"}, result.Tasks)

	// system + 2 history + user message, in order
	require.Len(t, gotReq.Messages, 4)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[3].Role)
	assert.Equal(t, "The nucleus controls the cell", gotReq.Messages[3].Content)
	require.NotNil(t, gotReq.ResponseFormat)
	assert.Equal(t, "json_object", gotReq.ResponseFormat.Type)
}

func TestCompleteRetriesWithoutStructuredOutput(t *testing.T) {
	var formats []*responseFormat
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		formats = append(formats, req.ResponseFormat)

		if req.ResponseFormat != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"message":"response_format is not supported"}}`)
			return
		}
		fmt.Fprint(w, chatBody(`{"reply":"Second try worked","objective_met":false}`))
	}, true)

	result, err := client.Complete(context.Background(), "system", nil, "hello")
	require.NoError(t, err)

	assert.Equal(t, "Second try worked", result.Reply)
	require.Len(t, formats, 2)
	assert.NotNil(t, formats[0])
	assert.Nil(t, formats[1])
}

func TestCompleteSurfacesLastFailure(t *testing.T) {
	var calls int
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"message":"bad request"}}`)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"message":"overloaded"}}`)
	}, true)

	_, err := client.Complete(context.Background(), "system", nil, "hello")
	require.Error(t, err)

	reqErr, ok := asRequestError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, reqErr.StatusCode)
	assert.Equal(t, "overloaded", reqErr.Message)
	assert.Equal(t, 2, calls)
	assert.ErrorIs(t, err, shared.ErrProviderRequest)
}

func TestCompleteNoRetryWithoutStructuredOutput(t *testing.T) {
	var calls int
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	}, false)

	_, err := client.Complete(context.Background(), "system", nil, "hello")
	require.Error(t, err)

	reqErr, ok := asRequestError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, reqErr.StatusCode)
	assert.Equal(t, "boom", reqErr.Message)
	assert.Equal(t, 1, calls)
}

func TestCompleteResponseShapes(t *testing.T) {
	t.Run("output content text shape", func(t *testing.T) {
		client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"output":[{"content":[{"text":"{\"reply\":\"From output shape\",\"objective_met\":true}"}]}]}`)
		}, false)

		result, err := client.Complete(context.Background(), "system", nil, "hello")
		require.NoError(t, err)

		assert.Equal(t, "From output shape", result.Reply)
		assert.True(t, result.ObjectiveMet)
	})

	t.Run("content part array without coach keys is rejected", func(t *testing.T) {
		client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"choices":[{"message":{"content":[{"type":"text","text":"hi"}]}}]}`)
		}, false)

		_, err := client.Complete(context.Background(), "system", nil, "hello")

		assert.ErrorIs(t, err, shared.ErrInvalidProviderResponse)
	})

	t.Run("plain text content is rejected with the raw text preserved", func(t *testing.T) {
		client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatBody("Let me explain that differently."))
		}, false)

		_, err := client.Complete(context.Background(), "system", nil, "hello")

		require.ErrorIs(t, err, shared.ErrInvalidProviderResponse)
		assert.Contains(t, err.Error(), "Let me explain that differently.")
	})

	t.Run("object without a reply string is rejected", func(t *testing.T) {
		client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatBody(`{"objective_met":true}`))
		}, false)

		_, err := client.Complete(context.Background(), "system", nil, "hello")

		assert.ErrorIs(t, err, shared.ErrInvalidProviderResponse)
	})

	t.Run("error envelope on a 200 is rejected", func(t *testing.T) {
		client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"error":{"message":"internal provider error"}}`)
		}, false)

		_, err := client.Complete(context.Background(), "system", nil, "hello")

		assert.ErrorIs(t, err, shared.ErrInvalidProviderResponse)
	})

	t.Run("empty body is rejected", func(t *testing.T) {
		client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		}, false)

		_, err := client.Complete(context.Background(), "system", nil, "hello")

		assert.ErrorIs(t, err, shared.ErrInvalidProviderResponse)
	})
}

func TestCompleteTimeout(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, chatBody("too late"))
	}, false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, "system", nil, "hello")

	assert.ErrorIs(t, err, shared.ErrTimeout)
}
