package processing

import (
	"strconv"
	"strings"

	"caballos/logging"
	"caballos/models"
)

const (
	Skipped       = 0
	Done          = 2
	Failed        = 3
	FailedStorage = 4
	FailedDB      = 5
)

func statusName(status int) string {
	switch status {
	case Skipped:
		return "skipped"
	case Done:
		return "done"
	}
	return "failed"
}

// ProcessingTask records which background tasks already ran for a media file
type ProcessingTask struct {
	MediaID uint64            `gorm:"primaryKey"`
	Media   *models.MediaFile `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Status  string            `gorm:"type:varchar(1024)"` // Contains comma-separated pairs of task and status, e.g. "thumb:2,dimensions:0"
}

func (ProcessingTask) TableName() string {
	return "processing_tasks"
}

func (pt *ProcessingTask) statusToMap() map[string]int {
	result := map[string]int{}
	if pt.Status == "" {
		return result
	}
	for _, v := range strings.Split(pt.Status, ",") {
		current := strings.Split(v, ":")
		if len(current) != 2 {
			logging.L.Warnw("task status contains invalid chars", "media", pt.MediaID, "status", pt.Status)
			continue
		}
		result[current[0]], _ = strconv.Atoi(current[1])
	}
	return result
}

// updateWith keeps the pairs sorted by task name so the column is stable
func (pt *ProcessingTask) updateWith(statusMap map[string]int) {
	result := []string{}
	for _, name := range taskNames() {
		if v, ok := statusMap[name]; ok {
			result = append(result, name+":"+strconv.Itoa(v))
		}
	}
	pt.Status = strings.Join(result, ",")
}
