package logging

import (
	"slices"
	"time"
)

// Timer logs the outcome and latency of one operation.
type Timer struct {
	logger Logger
	msg    string
	start  time.Time
	fields []Field
}

func StartTimer(logger Logger, msg string, fields ...Field) *Timer {
	return &Timer{logger: logger, msg: msg, start: time.Now(), fields: fields}
}

// Finish logs msg at Info when err is nil, and "<msg> failed" at Error with
// the error otherwise. It returns the elapsed time.
func (t *Timer) Finish(err error) time.Duration {
	elapsed := time.Since(t.start)
	fields := append(slices.Clip(t.fields), Latency(elapsed))
	if err != nil {
		t.logger.Error(t.msg+" failed", append(fields, Error(err))...)
		return elapsed
	}
	t.logger.Info(t.msg, fields...)
	return elapsed
}
