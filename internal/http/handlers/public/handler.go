package public

import "github.com/fenxiao-next/internal/provider"

// Handler 面向买家与游客的前台 API 处理器
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
