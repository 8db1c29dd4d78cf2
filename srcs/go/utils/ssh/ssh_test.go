package ssh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Target_resolved(t *testing.T) {
	r := Target{User: "bob", Host: "10.0.0.1", KeyFile: "/k"}.resolved()
	assert.Equal(t, Target{User: "bob", Host: "10.0.0.1:22", KeyFile: "/k"}, r)
	assert.Equal(t, "bob@10.0.0.1:22", r.String())

	r = Target{User: "bob", Host: "10.0.0.1:2222"}.resolved()
	assert.Equal(t, "10.0.0.1:2222", r.Host)
	if home, err := os.UserHomeDir(); err == nil {
		assert.Equal(t, filepath.Join(home, ".ssh", "id_rsa"), r.KeyFile)
	}
}

func Test_Dial_BadKey(t *testing.T) {
	key := filepath.Join(t.TempDir(), "id_rsa")
	require.NoError(t, os.WriteFile(key, []byte("not a key"), 0o600))
	_, err := Dial(Target{User: "bob", Host: "127.0.0.1", KeyFile: key})
	assert.ErrorContains(t, err, "ssh bob@127.0.0.1:22")
}
