package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/target/backport-bot/internal/domain/model"
)

func diffWithChanges(files, additions, deletions int) string {
	var b strings.Builder
	for f := 0; f < files; f++ {
		b.WriteString("diff --git a/file.go b/file.go\n")
		b.WriteString("--- a/file.go\n")
		b.WriteString("+++ b/file.go\n")
		b.WriteString("@@ -1,3 +1,4 @@\n")
	}
	for i := 0; i < additions; i++ {
		b.WriteString("+added line\n")
	}
	for i := 0; i < deletions; i++ {
		b.WriteString("-removed line\n")
	}
	return b.String()
}

func TestAnalyzeDiffCounts(t *testing.T) {
	analysis := AnalyzeDiff(diffWithChanges(2, 10, 5))

	assert.Equal(t, 2, analysis.FilesChanged)
	assert.Equal(t, 10, analysis.Additions)
	assert.Equal(t, 5, analysis.Deletions)
	assert.Equal(t, model.ComplexityLow, analysis.Complexity)
}

func TestAnalyzeDiffFileHeadersNotCounted(t *testing.T) {
	// +++/--- header lines must not count as content changes.
	analysis := AnalyzeDiff(diffWithChanges(1, 0, 0))
	assert.Equal(t, 1, analysis.FilesChanged)
	assert.Equal(t, 0, analysis.Additions)
	assert.Equal(t, 0, analysis.Deletions)
}

func TestAnalyzeDiffComplexityThresholds(t *testing.T) {
	tests := []struct {
		name         string
		changedLines int
		want         model.Complexity
	}{
		{name: "empty diff", changedLines: 0, want: model.ComplexityLow},
		{name: "just under medium", changedLines: 49, want: model.ComplexityLow},
		{name: "at medium threshold", changedLines: 50, want: model.ComplexityMedium},
		{name: "just under high", changedLines: 399, want: model.ComplexityMedium},
		{name: "at high threshold", changedLines: 400, want: model.ComplexityHigh},
		{name: "very large", changedLines: 5000, want: model.ComplexityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := AnalyzeDiff(diffWithChanges(1, tt.changedLines, 0))
			assert.Equal(t, tt.want, analysis.Complexity)
		})
	}
}
