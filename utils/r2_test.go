package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExportKeyPrefix(t *testing.T) {
	assert.Equal(t, "holder-rewards", ExportKeyPrefix("holder rewards"))
	assert.Equal(t, "holder-rewards-prod", ExportKeyPrefix("Holder Rewards / Prod"))
	assert.Equal(t, "ledger", ExportKeyPrefix("  "))
}
