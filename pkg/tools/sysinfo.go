package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// SystemInfoTool reads a host snapshot from /proc and /sys. Linux only;
// on other platforms the readings it cannot take are reported as
// unavailable rather than failing the tool.
type SystemInfoTool struct {
	procRoot string
	sysRoot  string
	diskPath string
}

func NewSystemInfoTool() *SystemInfoTool {
	return &SystemInfoTool{
		procRoot: "/proc",
		sysRoot:  "/sys",
		diskPath: "/",
	}
}

func (t *SystemInfoTool) Name() string {
	return "system_info"
}

func (t *SystemInfoTool) Description() string {
	return "Report a snapshot of host load, memory, disk, and battery status."
}

func (t *SystemInfoTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *SystemInfoTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	var lines []string

	if load, err := t.loadAverage(); err == nil {
		lines = append(lines, "Load average: "+load)
	} else {
		lines = append(lines, "Load average: unavailable")
	}

	if mem, err := t.memoryUsage(); err == nil {
		lines = append(lines, mem)
	} else {
		lines = append(lines, "Memory: unavailable")
	}

	if disk, err := t.diskUsage(); err == nil {
		lines = append(lines, disk)
	} else {
		lines = append(lines, "Disk: unavailable")
	}

	if battery, ok := t.batteryLevel(); ok {
		lines = append(lines, battery)
	}

	return OKResult(strings.Join(lines, "\n"))
}

func (t *SystemInfoTool) loadAverage() (string, error) {
	data, err := os.ReadFile(filepath.Join(t.procRoot, "loadavg"))
	if err != nil {
		return "", err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return "", fmt.Errorf("unexpected loadavg format")
	}
	return fmt.Sprintf("%s (1m) %s (5m) %s (15m)", fields[0], fields[1], fields[2]), nil
}

func (t *SystemInfoTool) memoryUsage() (string, error) {
	data, err := os.ReadFile(filepath.Join(t.procRoot, "meminfo"))
	if err != nil {
		return "", err
	}

	values := map[string]uint64{}
	for _, line := range strings.Split(string(data), "\n") {
		name, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		if kb, err := strconv.ParseUint(fields[0], 10, 64); err == nil {
			values[name] = kb
		}
	}

	total, ok := values["MemTotal"]
	if !ok || total == 0 {
		return "", fmt.Errorf("MemTotal missing from meminfo")
	}
	available := values["MemAvailable"]
	used := total - available
	return fmt.Sprintf("Memory: %.1f GiB used of %.1f GiB (%.0f%%)",
		kibToGib(used), kibToGib(total), float64(used)/float64(total)*100), nil
}

func (t *SystemInfoTool) diskUsage() (string, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(t.diskPath, &stat); err != nil {
		return "", err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	used := total - free
	if total == 0 {
		return "", fmt.Errorf("statfs reported zero size")
	}
	return fmt.Sprintf("Disk (%s): %.1f GiB used of %.1f GiB (%.0f%%)",
		t.diskPath, bytesToGib(used), bytesToGib(total), float64(used)/float64(total)*100), nil
}

func (t *SystemInfoTool) batteryLevel() (string, bool) {
	supplies, err := filepath.Glob(filepath.Join(t.sysRoot, "class/power_supply/BAT*/capacity"))
	if err != nil || len(supplies) == 0 {
		return "", false
	}
	data, err := os.ReadFile(supplies[0])
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("Battery: %s%%", strings.TrimSpace(string(data))), true
}

func kibToGib(kib uint64) float64 {
	return float64(kib) / (1024 * 1024)
}

func bytesToGib(b uint64) float64 {
	return float64(b) / (1024 * 1024 * 1024)
}
