package service

import "time"

// Clock 当前时间来源，测试中注入固定时间
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// FixedClock 返回固定时间
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
