package server

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

const spaIndex = "index.html"

type spaFileSystem struct {
	base http.FileSystem
}

// NewSPAFileSystem 构造前端构建目录的文件系统，找不到的路径回落到 index.html，交给前端路由处理。
func NewSPAFileSystem(dir string) http.FileSystem {
	return &spaFileSystem{base: gin.Dir(dir, false)}
}

func (s *spaFileSystem) Open(name string) (http.File, error) {
	clean := strings.TrimPrefix(name, "/")
	if clean == "" {
		clean = spaIndex
	}
	file, err := s.base.Open(clean)
	if err == nil {
		return file, nil
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
		return s.base.Open(spaIndex)
	}
	return nil, err
}

// DirExists 判断前端构建目录是否存在。
func DirExists(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
