package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Task is one row of traveler_task_state: a task offered to the player by a
// traveling NPC, reset on a server-wide loop timer.
type Task struct {
	EntityID   uint64 `json:"entity_id"`
	PlayerID   uint64 `json:"player_entity_id"`
	TravelerID int64  `json:"traveler_id"`
	TaskID     int64  `json:"task_id"`
	Completed  bool   `json:"completed"`
}

func (t Task) Key() uint64 { return t.EntityID }

// ParseTask decodes one traveler_task_state row.
func ParseTask(data []byte) (Task, error) {
	var row Task
	if err := json.Unmarshal(data, &row); err != nil {
		return Task{}, fmt.Errorf("parse traveler_task_state: %w", err)
	}
	if row.EntityID == 0 {
		return Task{}, fmt.Errorf("parse traveler_task_state: missing entity_id")
	}
	return row, nil
}

// TaskLoopTimer is the single row of traveler_task_loop_timer: the epoch at
// which the current task loop ends and all tasks reset.
type TaskLoopTimer struct {
	EntityID uint64
	ResetAt  time.Time
}

func (t TaskLoopTimer) Key() uint64 { return t.EntityID }

type taskLoopTimerRow struct {
	EntityID uint64    `json:"entity_id"`
	EndTime  Timestamp `json:"end_timestamp"`
}

// ParseTaskLoopTimer decodes one traveler_task_loop_timer row.
func ParseTaskLoopTimer(data []byte) (TaskLoopTimer, error) {
	var row taskLoopTimerRow
	if err := json.Unmarshal(data, &row); err != nil {
		return TaskLoopTimer{}, fmt.Errorf("parse traveler_task_loop_timer: %w", err)
	}
	return TaskLoopTimer{EntityID: row.EntityID, ResetAt: row.EndTime.Time()}, nil
}
