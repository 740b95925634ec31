package code

import "github.com/QuesmaOrg/demo-webr-ggplot/runtime"

// Classify maps a raw signal kind to its display category.
// Unknown and empty kinds are informational.
func Classify(kind runtime.SignalKind) Category {
	switch kind {
	case runtime.KindStdout:
		return CategoryStdout
	case runtime.KindStderr:
		return CategoryStderr
	case runtime.KindMessage:
		return CategoryInfo
	case runtime.KindWarning:
		return CategoryWarning
	case runtime.KindError:
		return CategoryError
	default:
		return CategoryInfo
	}
}
