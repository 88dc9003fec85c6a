package commit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommit_RejectsNonPositiveDiffBudget(t *testing.T) {
	orig := maxDiffChars
	t.Cleanup(func() { maxDiffChars = orig })

	for _, budget := range []int{0, -1} {
		maxDiffChars = budget
		err := CommitCmd.RunE(CommitCmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max-diff-chars")
	}
}
