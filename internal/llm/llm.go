// Package llm defines the reasoning and image-description ports the
// assistant talks to, plus the shared error type their adapters return.
package llm

import "context"

// DescribeInstruction is sent alongside every image.
const DescribeInstruction = "What is in this image?"

// Request is a single-prompt completion call.
type Request struct {
	Model     string
	Prompt    string
	MaxTokens int
}

// ImageRequest asks a model to describe an image.
type ImageRequest struct {
	Model       string
	Image       Image
	Instruction string
	MaxTokens   int
}

// Completer returns the model's raw text for a prompt. The text is
// untrusted.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ImageDescriber returns a free-text description of an image.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, req ImageRequest) (string, error)
}

// Backend is a provider offering both capabilities.
type Backend interface {
	Completer
	ImageDescriber
	Name() string
}
