package domain

import "sync"

// Statistics aggregates processing outcomes. It is owned by the dispatcher
// and passed by reference; increments are atomic so a batch may be
// parallelized across documents.
type Statistics struct {
	mu sync.Mutex

	totalProcessed int64
	successful     int64
	failed         int64
	byChannel      map[string]int64
	byType         map[string]int64
	byDepartment   map[string]int64
}

func NewStatistics() *Statistics {
	return &Statistics{
		byChannel:    make(map[string]int64),
		byType:       make(map[string]int64),
		byDepartment: make(map[string]int64),
	}
}

// Record counts exactly one document outcome across all four dimensions.
func (s *Statistics) Record(channel, fileType, department string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalProcessed++
	if success {
		s.successful++
	} else {
		s.failed++
	}
	s.byChannel[channel]++
	s.byType[fileType]++
	s.byDepartment[department]++
}

func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalProcessed = 0
	s.successful = 0
	s.failed = 0
	s.byChannel = make(map[string]int64)
	s.byType = make(map[string]int64)
	s.byDepartment = make(map[string]int64)
}

// StatisticsSnapshot is an immutable copy safe to serialize.
type StatisticsSnapshot struct {
	TotalProcessed int64            `json:"total_processed"`
	Successful     int64            `json:"successful"`
	Failed         int64            `json:"failed"`
	ByChannel      map[string]int64 `json:"by_channel"`
	ByType         map[string]int64 `json:"by_type"`
	ByDepartment   map[string]int64 `json:"by_department"`
}

func (s *Statistics) Snapshot() StatisticsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StatisticsSnapshot{
		TotalProcessed: s.totalProcessed,
		Successful:     s.successful,
		Failed:         s.failed,
		ByChannel:      copyCounts(s.byChannel),
		ByType:         copyCounts(s.byType),
		ByDepartment:   copyCounts(s.byDepartment),
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
