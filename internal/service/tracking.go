package service

import (
	"math/rand/v2"
	"regexp"
	"strings"
)

const (
	trackingPrefix   = "SG-"
	trackingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	trackingLength   = 8
)

// TrackingIDPattern 追踪码格式
var TrackingIDPattern = regexp.MustCompile(`^SG-[A-Z0-9]{8}$`)

// IsValidTrackingID 格式校验（不查库）
func IsValidTrackingID(id string) bool {
	return TrackingIDPattern.MatchString(id)
}

// TrackingGenerator 生成追踪码
// 不保证唯一，冲突由 tracking_id 唯一索引兜底
type TrackingGenerator struct {
	intN func(n int) int
}

// NewTrackingGenerator intN 为 nil 时使用 math/rand/v2
func NewTrackingGenerator(intN func(n int) int) *TrackingGenerator {
	if intN == nil {
		intN = rand.IntN
	}
	return &TrackingGenerator{intN: intN}
}

// Generate SG-XXXXXXXX
func (g *TrackingGenerator) Generate() string {
	var b strings.Builder
	b.Grow(len(trackingPrefix) + trackingLength)
	b.WriteString(trackingPrefix)
	for i := 0; i < trackingLength; i++ {
		b.WriteByte(trackingAlphabet[g.intN(len(trackingAlphabet))])
	}
	return b.String()
}
