package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), zerolog.Nop())
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "core_sw_1", SafeName(`core/sw:1`))
	assert.Equal(t, "a_b_c_d_e_f_g_h_", SafeName(`a\b/c*d?e:f"g<h|`))
	assert.Equal(t, "router1", SafeName("router1"))
	assert.Equal(t, "未知设备", SafeName("未知设备"))
}

func TestWriteReportLayout(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Init())

	path, err := s.WriteReport("10.0.0.1", "router1", "ssh", testStart, []CommandResult{
		{Command: "show version", Output: "Cisco IOS 15.1"},
		{Command: "show ip interface brief", Output: "Interface  IP-Address"},
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(s.Root(), "10.0.0.1__router1", "20250314-092653.txt"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	sep := strings.Repeat("#", 40) + "\n"
	want := "=== 设备巡检报告 ===\n" +
		"设备 IP: 10.0.0.1\n" +
		"设备名称: router1\n" +
		"巡检时间: 2025-03-14 09:26:53\n" +
		"登录协议: ssh\n" +
		"=== 巡检命令输出 ===\n\n" +
		sep +
		"--- 命令: show version ---\n" +
		"Cisco IOS 15.1\n\n" +
		sep +
		"--- 命令: show ip interface brief ---\n" +
		"Interface  IP-Address\n\n" +
		sep
	assert.Equal(t, want, string(raw))
}

func TestWriteReportSanitizesDirectoryName(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Init())

	path, err := s.WriteReport("10.0.0.2", `edge/fw:01`, "telnet", testStart, nil)
	require.NoError(t, err)
	assert.Contains(t, path, "10.0.0.2__edge_fw_01")

	// The raw name still appears inside the report.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "设备名称: edge/fw:01\n")
}

func TestWriteReportNoCommands(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Init())

	path, err := s.WriteReport("10.0.0.3", "router1", "ssh", testStart, nil)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), strings.Repeat("#", 40)))
}

func TestWriteError(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Init())

	path, err := s.WriteError("10.0.0.1", testStart, "设备连接失败，无法获取设备名称。")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "errors", "10.0.0.1_20250314-092653.error.log"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "设备连接失败，无法获取设备名称。", string(raw))
}

func TestCleanOldKeepsNewest(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Init())

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"10.0.0.1__a", "10.0.0.2__b", "10.0.0.3__c"} {
		dir := filepath.Join(s.Root(), name)
		require.NoError(t, os.Mkdir(dir, 0o755))
		mt := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(dir, mt, mt))
	}

	require.NoError(t, s.CleanOld(2))

	assert.NoDirExists(t, filepath.Join(s.Root(), "10.0.0.1__a"))
	assert.DirExists(t, filepath.Join(s.Root(), "10.0.0.2__b"))
	assert.DirExists(t, filepath.Join(s.Root(), "10.0.0.3__c"))
	assert.DirExists(t, filepath.Join(s.Root(), "errors"))
}

func TestCleanOldSparesErrorsDir(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Init())

	old := time.Now().Add(-24 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(s.Root(), "errors"), old, old))

	require.NoError(t, s.CleanOld(0))
	assert.DirExists(t, filepath.Join(s.Root(), "errors"))
}

func TestCleanOldMissingRoot(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope"), zerolog.Nop())
	require.NoError(t, s.CleanOld(5))
}
