package code

import (
	"testing"

	"github.com/QuesmaOrg/demo-webr-ggplot/runtime"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		kind runtime.SignalKind
		want Category
	}{
		{runtime.KindStdout, CategoryStdout},
		{runtime.KindStderr, CategoryStderr},
		{runtime.KindMessage, CategoryInfo},
		{runtime.KindWarning, CategoryWarning},
		{runtime.KindError, CategoryError},
		{"", CategoryInfo},
		{"plot", CategoryInfo},
		{"STDOUT", CategoryInfo},
	}
	for _, tt := range tests {
		if got := Classify(tt.kind); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestCategory_IsText(t *testing.T) {
	for _, c := range []Category{CategoryStdout, CategoryStderr, CategoryInfo, CategoryWarning, CategoryError, CategorySuccess} {
		if !c.IsText() {
			t.Errorf("%q.IsText() = false, want true", c)
		}
	}
	if CategoryPlot.IsText() {
		t.Error("plot.IsText() = true, want false")
	}
}
