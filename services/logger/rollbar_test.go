package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/user"
)

func TestRollbarLoggerPrint(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), core.NewTestConfig())

	logger.Info("report emailed", map[string]interface{}{"assessment": "a1", "bytes": 42}, user.User{ID: "u1"})
	assert.Equal(t, "INFO  report emailed assessment=a1 bytes=42 user=u1\n", buf.String())
}
