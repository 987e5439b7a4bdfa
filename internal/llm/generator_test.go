package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewOpenAIGenerator_MissingKey(t *testing.T) {
	if _, err := NewOpenAIGenerator("", "", ""); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("NewOpenAIGenerator() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestOpenAIGenerator_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, tok := range []string{"Tempo ", "is ", "rate."} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", tok)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	g, err := NewOpenAIGenerator("sk-test", "", srv.URL+"/v1")
	if err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	err = g.Stream(context.Background(), "system", "user", func(tok string) error {
		out.WriteString(tok)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if out.String() != "Tempo is rate." {
		t.Errorf("streamed %q, want %q", out.String(), "Tempo is rate.")
	}
}

func TestOpenAIGenerator_StopsOnCallbackError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"b\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	g, _ := NewOpenAIGenerator("sk-test", "", srv.URL+"/v1")
	stop := errors.New("stop")
	calls := 0
	err := g.Stream(context.Background(), "s", "u", func(string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("Stream() error = %v after %d calls, want stop after 1", err, calls)
	}
}

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		provider string
		want     string
		wantErr  error
	}{
		{"", "*llm.OpenAIGenerator", nil},
		{"openai", "*llm.OpenAIGenerator", nil},
		{"anthropic", "*llm.AnthropicGenerator", nil},
		{"cohere", "", ErrUnknownProvider},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			g, err := NewGenerator(tt.provider, "key", "", "")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewGenerator(%q) error = %v, want %v", tt.provider, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewGenerator(%q) error = %v", tt.provider, err)
			}
			if got := fmt.Sprintf("%T", g); got != tt.want {
				t.Errorf("NewGenerator(%q) = %s, want %s", tt.provider, got, tt.want)
			}
		})
	}
}

func TestNewAnthropicGenerator_MissingKey(t *testing.T) {
	if _, err := NewAnthropicGenerator(" ", "", ""); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("NewAnthropicGenerator() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestAnthropicGenerator_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "ak-test" || r.Header.Get("anthropic-version") == "" {
			t.Errorf("headers = %v", r.Header)
		}
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.System != "system" || !req.Stream || len(req.Messages) != 1 || req.Messages[0].Content != "user" {
			t.Errorf("request = %+v", req)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
		for _, tok := range []string{"Tempo ", "is ", "rate."} {
			fmt.Fprintf(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":%q}}\n\n", tok)
		}
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
	defer srv.Close()

	g, err := NewAnthropicGenerator("ak-test", "", srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	err = g.Stream(context.Background(), "system", "user", func(tok string) error {
		out.WriteString(tok)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if out.String() != "Tempo is rate." {
		t.Errorf("streamed %q, want %q", out.String(), "Tempo is rate.")
	}
}

func TestAnthropicGenerator_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"status", http.StatusUnauthorized, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`, "status 401"},
		{"stream event", http.StatusOK, "event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n", "Overloaded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			g, _ := NewAnthropicGenerator("ak-test", "", srv.URL)
			err := g.Stream(context.Background(), "s", "u", func(string) error { return nil })
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Stream() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
