package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// ModeLocal 表示使用本地 SQLite 文件存储。
	ModeLocal = "local"
	// ModeOnline 表示连接 MySQL。
	ModeOnline = "online"

	// EnvProduction 生产环境下错误响应不回传底层细节。
	EnvProduction = "production"

	defaultLocalDBRelPath = "data/shift-handover.db"
)

// RuntimeFlags 汇总运行期所需的模式与本地环境配置。
type RuntimeFlags struct {
	Mode  string
	Env   string
	Local LocalRuntime
}

// LocalRuntime 描述本地模式下需要的额外配置。
type LocalRuntime struct {
	DBPath string
}

// IsLocalMode 判断是否以 SQLite 运行。
func (f RuntimeFlags) IsLocalMode() bool {
	return f.Mode == ModeLocal
}

// IsProduction 判断是否为生产环境。
func (f RuntimeFlags) IsProduction() bool {
	return f.Env == EnvProduction
}

// LoadRuntimeFlags 读取环境变量，推导当前运行模式及本地模式参数。
// APP_MODE 为空时默认 local，方便单机部署开箱即用。
func LoadRuntimeFlags() RuntimeFlags {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("APP_MODE")))
	if mode != ModeOnline {
		mode = ModeLocal
	}

	env := strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV")))
	if env == "" {
		env = "development"
	}

	local := LocalRuntime{DBPath: normalisePath(defaultLocalDBRelPath)}
	if rawPath := strings.TrimSpace(os.Getenv("LOCAL_SQLITE_PATH")); rawPath != "" {
		local.DBPath = normalisePath(rawPath)
	}

	return RuntimeFlags{
		Mode:  mode,
		Env:   env,
		Local: local,
	}
}

// normalisePath 将路径展开为绝对路径，兼容 ~ 前缀与相对路径。
func normalisePath(raw string) string {
	if raw == "" {
		return raw
	}
	if strings.HasPrefix(raw, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			raw = filepath.Join(home, strings.TrimPrefix(raw, "~"))
		}
	}
	if filepath.IsAbs(raw) {
		return raw
	}
	if abs, err := filepath.Abs(raw); err == nil {
		return abs
	}
	return raw
}
