package cmd

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootRejectsBadConfig(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml"), "import"})
	root.SetErr(io.Discard)
	assert.ErrorContains(t, root.Execute(), "读取本地配置文件错误")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 3000\nmagento:\n  url: shop.example.com\n"), 0o644))
	root = NewRootCommand()
	root.SetArgs([]string{"-c", path, "import"})
	root.SetErr(io.Discard)
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "本地配置文件验证错误")
	assert.Contains(t, err.Error(), "缺少 http(s) 协议头")
}
