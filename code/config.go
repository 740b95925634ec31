package code

import "fmt"

// DefaultWidth is the print width set before every evaluation.
const DefaultWidth = 80

// DefaultPlotClasses are the classes whose values are only ever shown
// through the graphics channel.
var DefaultPlotClasses = []string{
	"ggplot",
	"gg",
	"trellis",
	"recordedplot",
	"grob",
	"gtable",
	"histogram",
}

// Config controls executor behavior.
type Config struct {
	// Width is the interpreter print width. Defaults to DefaultWidth.
	Width int

	// PlotClasses are the classes treated as plot objects by the result
	// policy. Defaults to DefaultPlotClasses.
	PlotClasses []string

	// ErrorMarker is stripped from the front of error text.
	// Defaults to DefaultErrorMarker; set KeepErrorMarker to disable.
	ErrorMarker string

	// KeepErrorMarker disables stripping of ErrorMarker.
	KeepErrorMarker bool

	// Logger is an optional logger for execution summaries.
	Logger Logger
}

// Validate checks that configured values are usable.
func (c *Config) Validate() error {
	if c.Width < 0 {
		return fmt.Errorf("%w: negative width %d", ErrConfiguration, c.Width)
	}
	for _, class := range c.PlotClasses {
		if class == "" {
			return fmt.Errorf("%w: empty plot class", ErrConfiguration)
		}
	}
	return nil
}

// applyDefaults sets default values for optional fields.
func (c *Config) applyDefaults() {
	if c.Width == 0 {
		c.Width = DefaultWidth
	}
	if len(c.PlotClasses) == 0 {
		c.PlotClasses = append([]string(nil), DefaultPlotClasses...)
	}
	if c.ErrorMarker == "" && !c.KeepErrorMarker {
		c.ErrorMarker = DefaultErrorMarker
	}
	if c.KeepErrorMarker {
		c.ErrorMarker = ""
	}
	if c.Logger == nil {
		c.Logger = nopLogger{}
	}
}

// Option is a functional option for configuring an Executor.
type Option func(*Config)

// WithWidth sets the interpreter print width.
func WithWidth(width int) Option {
	return func(c *Config) {
		c.Width = width
	}
}

// WithPlotClasses replaces the plot class list.
func WithPlotClasses(classes ...string) Option {
	return func(c *Config) {
		c.PlotClasses = classes
	}
}

// WithErrorMarker sets the prefix stripped from error text.
// An empty marker disables stripping.
func WithErrorMarker(marker string) Option {
	return func(c *Config) {
		c.ErrorMarker = marker
		c.KeepErrorMarker = marker == ""
	}
}

// WithLogger sets the executor logger.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
