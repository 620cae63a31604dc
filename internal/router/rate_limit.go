package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/couponstore/internal/config"
	"github.com/couponstore/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
// BlockSeconds 大于窗口时，超限后 key 会延长到 BlockSeconds 再过期
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

// NewRateLimitRule 从配置构建限流规则
func NewRateLimitRule(prefix string, cfg config.RateLimitRuleConfig) RateLimitRule {
	return RateLimitRule{
		Prefix:        prefix,
		WindowSeconds: cfg.WindowSeconds,
		MaxRequests:   cfg.MaxAttempts,
		BlockSeconds:  cfg.BlockSeconds,
	}
}

// 固定窗口计数，INCR 与 EXPIRE 在脚本内原子执行
var rateLimitScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
if tonumber(ARGV[3]) > 0 and hits == tonumber(ARGV[2]) + 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[3])
end
local ttl = redis.call("TTL", KEYS[1])
return {hits, ttl}
`)

// RateLimitMiddleware Redis 频率限制中间件
// client 为空或规则未配置时直接放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}

		result, err := rateLimitScript.Run(
			c.Request.Context(), client,
			[]string{rateLimitKey(c, rule, keyFunc)},
			rule.WindowSeconds, rule.MaxRequests, rule.BlockSeconds,
		).Result()
		if err != nil {
			abortLimiterUnavailable(c)
			return
		}

		hits, ttlSeconds, ok := parseScriptReply(result)
		if !ok {
			abortLimiterUnavailable(c)
			return
		}

		if hits > int64(rule.MaxRequests) {
			wait := int(ttlSeconds)
			if wait < 1 {
				wait = rule.WindowSeconds
			}
			if wait < 1 {
				wait = 1
			}
			response.Error(c, response.CodeTooManyRequests,
				fmt.Sprintf("too many requests, retry in %d seconds", wait))
			c.Abort()
			return
		}

		c.Next()
	}
}

func rateLimitKey(c *gin.Context, rule RateLimitRule, keyFunc RateLimitKeyFunc) string {
	key := ""
	if keyFunc != nil {
		key = strings.TrimSpace(keyFunc(c))
	}
	if key == "" {
		key = c.ClientIP()
	}
	if rule.Prefix != "" {
		key = rule.Prefix + ":" + key
	}
	return key
}

func abortLimiterUnavailable(c *gin.Context) {
	response.Error(c, response.CodeInternal, "rate limiter unavailable")
	c.Abort()
}

func parseScriptReply(result interface{}) (hits, ttl int64, ok bool) {
	values, isSlice := result.([]interface{})
	if !isSlice || len(values) < 2 {
		return 0, 0, false
	}
	hits, ok = toInt64(values[0])
	if !ok {
		return 0, 0, false
	}
	ttl, _ = toInt64(values[1])
	return hits, ttl, true
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByUserAndIP 使用用户 ID + IP 作为限流 key，匿名请求退化为 IP
func KeyByUserAndIP(c *gin.Context) string {
	if raw, exists := c.Get("user_id"); exists {
		if id, ok := raw.(uint); ok && id > 0 {
			return fmt.Sprintf("%d|%s", id, c.ClientIP())
		}
	}
	return c.ClientIP()
}

// KeyByIPAndJSONField 使用 IP + 请求体 JSON 字段作为限流 key
// 登录、注册这类匿名接口按账号维度限流时使用
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(strings.TrimSpace(readJSONField(c, field)))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

// readJSONField 读取请求体字段后恢复 Body，后续绑定不受影响
func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return ""
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if text, ok := payload[field].(string); ok {
		return strings.TrimSpace(text)
	}
	return ""
}

// toInt64 收敛 Lua 脚本回包的数值类型
func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
