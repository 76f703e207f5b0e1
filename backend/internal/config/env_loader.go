/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-02 09:40:18
 * @FilePath: \shift-handover-log\backend\internal\config\env_loader.go
 * @LastEditTime: 2026-10-04 11:02:37
 */
package config

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var (
	envOnce     sync.Once
	envOnceLock sync.Mutex
	skipEnvLoad bool
)

// LoadEnvFiles 只加载一次 .env.local / .env，进程内已有的同名变量会被文件覆盖。
func LoadEnvFiles() {
	if skipEnvLoad || os.Getenv("CONFIG_SKIP_ENV_LOAD") == "1" {
		return
	}

	envOnce.Do(func() {
		// 先读 .env 再读 .env.local，后者覆盖前者。
		for _, name := range []string{".env", ".env.local"} {
			path, ok := findEnvFile(name)
			if !ok {
				continue
			}
			if err := godotenv.Overload(path); err != nil {
				log.Printf("[config] skip environment file %s: %v", path, err)
				continue
			}
			log.Printf("[config] loaded environment file: %s", path)
		}
	})
}

// SetEnvFileLoadingForTest toggles automatic env file loading. Intended for tests only.
// 测试里通常传 false，避免开发机上的 .env 干扰断言。
func SetEnvFileLoadingForTest(enabled bool) {
	envOnceLock.Lock()
	defer envOnceLock.Unlock()

	skipEnvLoad = !enabled
	envOnce = sync.Once{}
}

// findEnvFile 从当前目录逐级向上查找，兼容在 backend/cmd/* 下直接运行。
func findEnvFile(name string) (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	dir := cwd
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
