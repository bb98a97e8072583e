package allocation

import (
	"errors"
	"fmt"
	"time"
)

var ErrNegativeCapacity = errors.New("可用工人数不能为负数")

// ConfigurationError 分配比例不合法，对应的 Engine 不会被创建
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "分配比例配置错误: " + e.Reason
}

// ValidationError 某一天的预测数据不合法
type ValidationError struct {
	Date   time.Time
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s 的预测数据无效: %s", e.Date.Format(time.DateOnly), e.Reason)
}
