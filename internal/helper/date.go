package helper

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// NormDate приводит дату к YYYY-MM-DD; принимает и слитный YYYYMMDD.
func NormDate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.Format(DateLayout), true
	}
	if t, err := time.Parse("20060102", s); err == nil {
		return t.Format(DateLayout), true
	}
	return "", false
}

// Today — сегодняшняя дата в каноничном формате.
func Today() string {
	return time.Now().Format(DateLayout)
}
