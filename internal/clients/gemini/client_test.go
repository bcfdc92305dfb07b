package gemini

import (
	"context"
	"testing"

	"google.golang.org/genai"
)

func TestExtractTextFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: `{"pipeline":`}, {Text: `"analytics"}`}}},
		}},
	}
	got, err := extractTextFromResponse(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"pipeline":"analytics"}` {
		t.Errorf("unexpected text: %s", got)
	}
}

func TestExtractTextFromResponse_Empty(t *testing.T) {
	for _, resp := range []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{}}},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}},
	} {
		if _, err := extractTextFromResponse(resp); err == nil {
			t.Errorf("expected error for %+v", resp)
		}
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewClient(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty API key")
	}
}
