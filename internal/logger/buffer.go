// internal/logger/buffer.go
package logger

import (
	"encoding/json"
	"sync"
	"time"
)

// LogEntry одна запись кольцевого буфера.
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Logger    string                 `json:"logger,omitempty"`
	Message   string                 `json:"msg"`
	Fields    map[string]interface{} `json:"-"`
}

// LogBuffer is a fixed-size ring of recent log entries. It implements
// io.Writer for JSON-encoded zap lines so it can back a zapcore.Core.
type LogBuffer struct {
	mu           sync.Mutex
	ringBuffer   []LogEntry
	maxSize      int
	currentIndex int
	wrapped      bool

	totalEntries uint64
}

// NewLogBuffer creates a ring holding at most maxSize entries.
func NewLogBuffer(maxSize int) *LogBuffer {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LogBuffer{
		ringBuffer: make([]LogEntry, maxSize),
		maxSize:    maxSize,
	}
}

// Add добавляет запись, вытесняя самую старую при переполнении.
func (lb *LogBuffer) Add(level, message string, fields map[string]interface{}) {
	lb.add(LogEntry{Timestamp: time.Now(), Level: level, Message: message, Fields: fields})
}

func (lb *LogBuffer) add(entry LogEntry) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.ringBuffer[lb.currentIndex] = entry
	lb.currentIndex = (lb.currentIndex + 1) % lb.maxSize
	if lb.currentIndex == 0 {
		lb.wrapped = true
	}
	lb.totalEntries++
}

// Write разбирает одну JSON-строку zap. Нераспознанный ввод сохраняется как
// сообщение целиком.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(p, &raw); err != nil {
		lb.Add("INFO", string(p), nil)
		return len(p), nil
	}

	entry := LogEntry{Timestamp: time.Now(), Fields: make(map[string]interface{})}
	for k, v := range raw {
		s, _ := v.(string)
		switch k {
		case "level":
			entry.Level = s
		case "msg":
			entry.Message = s
		case "logger":
			entry.Logger = s
		case "timestamp", "ts":
			if t, err := time.Parse("2006-01-02T15:04:05.000Z0700", s); err == nil {
				entry.Timestamp = t
			}
		case "caller", "stacktrace":
		default:
			entry.Fields[k] = v
		}
	}
	lb.add(entry)
	return len(p), nil
}

// Sync нужен для zapcore.WriteSyncer.
func (lb *LogBuffer) Sync() error {
	return nil
}

// GetRecentLogs возвращает до limit последних записей от старых к новым.
func (lb *LogBuffer) GetRecentLogs(limit int) []LogEntry {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	count := lb.currentIndex
	start := 0
	if lb.wrapped {
		count = lb.maxSize
		start = lb.currentIndex
	}
	if limit > 0 && limit < count {
		start = (start + count - limit) % lb.maxSize
		count = limit
	}

	logs := make([]LogEntry, 0, count)
	for i := 0; i < count; i++ {
		logs = append(logs, lb.ringBuffer[(start+i)%lb.maxSize])
	}
	return logs
}

// GetStats returns the number of entries ever written.
func (lb *LogBuffer) GetStats() uint64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.totalEntries
}
