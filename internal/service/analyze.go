package service

import (
	"strings"

	"github.com/target/backport-bot/internal/domain/model"
)

// Complexity thresholds on total changed lines (additions + deletions).
const (
	mediumChangeThreshold = 50
	highChangeThreshold   = 400
)

// AnalyzeDiff derives change statistics and a complexity rating from a
// unified diff. File boundaries are "diff --git" headers; changed lines
// are +/- lines excluding the header markers.
func AnalyzeDiff(diff string) model.ChangeAnalysis {
	analysis := model.ChangeAnalysis{}

	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			analysis.FilesChanged++
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			// File headers, not content changes.
		case strings.HasPrefix(line, "+"):
			analysis.Additions++
		case strings.HasPrefix(line, "-"):
			analysis.Deletions++
		}
	}

	analysis.Complexity = rateComplexity(analysis.Additions + analysis.Deletions)
	return analysis
}

func rateComplexity(changedLines int) model.Complexity {
	switch {
	case changedLines < mediumChangeThreshold:
		return model.ComplexityLow
	case changedLines < highChangeThreshold:
		return model.ComplexityMedium
	default:
		return model.ComplexityHigh
	}
}
