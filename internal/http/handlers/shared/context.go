package shared

import (
	"github.com/couponstore/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetContextUint 从请求上下文读取 uint 值，缺失或类型异常时直接写出错误响应。
func GetContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return 0, false
	}

	id, code := contextValueToUint(value)
	if code != response.CodeOK {
		RespondError(c, code, "invalid context value", nil)
		return 0, false
	}
	return id, true
}

func contextValueToUint(value interface{}) (uint, int) {
	switch v := value.(type) {
	case uint:
		return v, response.CodeOK
	case int:
		if v < 0 {
			return 0, response.CodeBadRequest
		}
		return uint(v), response.CodeOK
	case float64:
		if v < 0 {
			return 0, response.CodeBadRequest
		}
		return uint(v), response.CodeOK
	default:
		return 0, response.CodeInternal
	}
}
