package adapters

import (
	"context"
	"testing"

	"leadinbox_backend/internal/responder/ports"
)

func TestCannedReplyGeneratorGreetsByName(t *testing.T) {
	g := NewCannedReplyGenerator("We received your message and will reply within one business day.")

	name := "Noor"
	reply, err := g.Generate(context.Background(), ports.GenerateRequest{
		CustomerName: &name,
		Channel:      "CHANNEL_A",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := "Hi Noor! We received your message and will reply within one business day."
	if reply.Text != want {
		t.Errorf("text = %q, want %q", reply.Text, want)
	}
	if reply.ModelID != cannedModelID {
		t.Errorf("model id = %q, want %q", reply.ModelID, cannedModelID)
	}
}

func TestCannedReplyGeneratorWithoutName(t *testing.T) {
	g := NewCannedReplyGenerator("Thanks, we will be in touch.")

	reply, err := g.Generate(context.Background(), ports.GenerateRequest{Channel: "CHANNEL_B"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply.Text != "Thanks, we will be in touch." {
		t.Errorf("text = %q", reply.Text)
	}
}

func TestCannedReplyGeneratorFallsBackToDefault(t *testing.T) {
	g := NewCannedReplyGenerator("   ")

	reply, err := g.Generate(context.Background(), ports.GenerateRequest{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply.Text != defaultReplyText {
		t.Errorf("text = %q, want default", reply.Text)
	}
}
