package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSQL_CreatesEveryTable(t *testing.T) {
	ddl := SQL()
	for _, table := range []string{
		"profiles", "rides", "achievements", "user_achievements",
		"challenges", "notifications", "device_tokens",
	} {
		assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}

func TestSQL_IsRerunnable(t *testing.T) {
	ddl := SQL()
	assert.Equal(t, strings.Count(ddl, "CREATE TABLE"), strings.Count(ddl, "CREATE TABLE IF NOT EXISTS"))
	assert.Equal(t, strings.Count(ddl, "CREATE INDEX"), strings.Count(ddl, "CREATE INDEX IF NOT EXISTS"))
	assert.Contains(t, ddl, "ON CONFLICT (name) DO NOTHING")
}

func TestSQL_SeedsOnlyKnownRequirementTypes(t *testing.T) {
	for _, line := range strings.Split(SQL(), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "('") {
			continue
		}
		known := false
		for _, typ := range []string{"'total_rides'", "'streak'", "'weekly'", "'monthly'"} {
			if strings.Contains(line, typ) {
				known = true
			}
		}
		assert.True(t, known, "seed row %q uses an unknown requirement type", line)
	}
}
