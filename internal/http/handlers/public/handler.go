package public

import "github.com/couponstore/internal/provider"

// Handler 面向游客与登录用户的 API 处理器，直接内嵌依赖容器
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
