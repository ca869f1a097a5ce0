package invoice

import "context"

// DefaultInstruction is sent ahead of every image and question.
const DefaultInstruction = `
You are an expert in understanding invoices.
We will upload a image as invoice and you will
have to answer any questions based on the uploaded
invoice image.
`

// Image is the raster payload forwarded to the model.
type Image struct {
	MimeType string
	Data     []byte
}

// Query is built once per submit and never mutated afterwards.
type Query struct {
	Instruction string
	Image       Image
	Question    string
}

// Response holds the model output exactly as it was returned.
type Response struct {
	Text string
}

// Asker performs one call to a hosted multimodal model.
type Asker interface {
	Ask(ctx context.Context, q Query) (string, error)
}
