package database

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"连接失效", driver.ErrBadConn, true},
		{"包装的连接失效", fmt.Errorf("query: %w", driver.ErrBadConn), true},
		{"死锁", &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}, true},
		{"锁等待超时", &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}, true},
		{"唯一键冲突不重试", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, false},
		{"invalid connection 文本匹配", errors.New("invalid connection"), true},
		{"connection refused 文本匹配", errors.New("dial tcp: connection refused"), true},
		{"broken pipe 文本匹配", errors.New("write: broken pipe"), true},
		{"业务错误不重试", errors.New("抽取规则总分值与考试总分不匹配"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransientError(tt.err))
		})
	}
}
