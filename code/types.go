package code

import "time"

// Category is the display class of a message.
type Category string

// Message categories.
const (
	CategoryStdout  Category = "stdout"
	CategoryStderr  Category = "stderr"
	CategoryInfo    Category = "info"
	CategoryWarning Category = "warning"
	CategoryError   Category = "error"
	CategorySuccess Category = "success"
	CategoryPlot    Category = "plot"
)

// IsText reports whether messages of this category carry text content.
func (c Category) IsText() bool {
	return c != CategoryPlot
}

// DisplayMessage is one entry of the console log.
// Values are treated as immutable once constructed.
type DisplayMessage struct {
	// Category classifies the message.
	Category Category `json:"category"`

	// Text is the content of text categories.
	Text string `json:"text,omitempty"`

	// Plot is the image of a CategoryPlot message.
	Plot *Plot `json:"plot,omitempty"`
}

// Plot is a rendered graphic ready for inline display.
type Plot struct {
	// MIMEType of Data, e.g. "image/png".
	MIMEType string `json:"mimeType"`

	// Data holds the encoded image bytes.
	Data []byte `json:"-"`

	// Width and Height in pixels, zero when unknown.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// URI is a data: URI embedding Data.
	URI string `json:"uri"`
}

// TextMessage builds a text message.
func TextMessage(category Category, text string) DisplayMessage {
	return DisplayMessage{Category: category, Text: text}
}

// ExecuteResult is the outcome of one Executor.Execute call.
type ExecuteResult struct {
	// Messages in display order.
	Messages []DisplayMessage `json:"messages"`

	// Duration is the wall-clock time of the whole call.
	Duration time.Duration `json:"-"`

	// DurationMs is Duration in milliseconds.
	DurationMs int64 `json:"durationMs"`

	// Success is false when the evaluation raised an error or an error
	// condition was captured.
	Success bool `json:"success"`
}

// OK reports whether the evaluation succeeded.
func (r ExecuteResult) OK() bool {
	return r.Success
}
