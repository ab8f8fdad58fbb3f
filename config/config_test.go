package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("PULSEMAIL_TEST_KEY", "set")
	assert.Equal(t, "set", getEnv("PULSEMAIL_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", getEnv("PULSEMAIL_TEST_MISSING", "fallback"))
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("PULSEMAIL_TEST_INT", "42")
	assert.Equal(t, 42, getEnvAsInt("PULSEMAIL_TEST_INT", 7))

	t.Setenv("PULSEMAIL_TEST_INT", "not-a-number")
	assert.Equal(t, 7, getEnvAsInt("PULSEMAIL_TEST_INT", 7))

	assert.Equal(t, 7, getEnvAsInt("PULSEMAIL_TEST_INT_MISSING", 7))
}

func TestMaskPassword(t *testing.T) {
	dsn := "host=localhost port=5432 user=postgres password=hunter2 dbname=pulsemail"
	masked := maskPassword(dsn)
	assert.NotContains(t, masked, "hunter2")
	assert.Contains(t, masked, "password=*****")
	assert.Contains(t, masked, "dbname=pulsemail")

	// Password at the end of the DSN
	assert.Equal(t, "user=x password=*****", maskPassword("user=x password=secret"))

	// No password field, nothing to mask
	assert.Equal(t, "host=localhost", maskPassword("host=localhost"))
}
