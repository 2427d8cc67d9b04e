package database

import (
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// TxRetryAttempts 提交事务默认重试次数
const TxRetryAttempts = 3

// IsTransientError 判断是否为值得整体重跑事务的瞬时错误：
// 连接断开、死锁、锁等待超时。业务错误和约束冲突不重试。
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1213: // deadlock found
			return true
		case 1205: // lock wait timeout
			return true
		}
	}

	msg := err.Error()
	return strings.Contains(msg, "invalid connection") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe")
}

// RunInTxWithRetry 在单个事务中执行 fn，瞬时失败时回滚并整体重跑。
// fn 必须是可重复执行的读-比较-写闭包，不能依赖前一次执行的副作用。
func RunInTxWithRetry(db *gorm.DB, attempts int, fn func(tx *gorm.DB) error) error {
	if attempts <= 0 {
		attempts = TxRetryAttempts
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = db.Transaction(fn)
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return err
		}
		// 退避后重跑整个事务体
		time.Sleep(time.Duration(i+1) * 50 * time.Millisecond)
	}
	return err
}
