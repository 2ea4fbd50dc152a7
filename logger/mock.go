package logger

import (
	"fmt"
	"sync"
)

// MockLogger retains the formatted lines it was given so tests can verify
// expected logging behavior.
type MockLogger struct {
	DebugLines []string
	InfoLines  []string
	ErrorLines []string
	mutex      sync.Mutex
}

var _ = Logger((*MockLogger)(nil))

func (l *MockLogger) Debugf(f string, args ...interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.DebugLines = append(l.DebugLines, fmt.Sprintf(f, args...))
}
func (l *MockLogger) Infof(f string, args ...interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.InfoLines = append(l.InfoLines, fmt.Sprintf(f, args...))
}
func (l *MockLogger) Errorf(f string, args ...interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.ErrorLines = append(l.ErrorLines, fmt.Sprintf(f, args...))
}
func (l *MockLogger) WithField(key string, value interface{}) Entry  { return &mockEntry{l: l} }
func (l *MockLogger) WithFields(fields map[string]interface{}) Entry { return &mockEntry{l: l} }
func (l *MockLogger) SetLevel(level string) error                    { return nil }

// ErrorCount returns the number of error lines logged so far.
func (l *MockLogger) ErrorCount() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.ErrorLines)
}

type mockEntry struct {
	l *MockLogger
}

func (e *mockEntry) Debugf(f string, args ...interface{})               { e.l.Debugf(f, args...) }
func (e *mockEntry) Infof(f string, args ...interface{})                { e.l.Infof(f, args...) }
func (e *mockEntry) Errorf(f string, args ...interface{})               { e.l.Errorf(f, args...) }
func (e *mockEntry) WithField(key string, value interface{}) Entry      { return e }
func (e *mockEntry) WithFields(fields map[string]interface{}) Entry     { return e }
