package admin

import "github.com/fenxiao-next/internal/provider"

// Handler 管理端 API 处理器，依赖由 provider.Container 注入
type Handler struct {
	*provider.Container
}

// New 创建管理端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
