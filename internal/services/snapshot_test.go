package services

import (
	"testing"
	"time"

	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestDiffSnapshotsReportsOnlyChanges(t *testing.T) {
	old := Snapshot{
		"title":  Scalar("Old title"),
		"status": Scalar("To-do"),
	}
	new := Snapshot{
		"title":  Scalar("New title"),
		"status": Scalar("To-do"),
	}

	oldChanged, newChanged, fields := DiffSnapshots(old, new)

	assert.Equal(t, []string{"title"}, fields)
	assert.Equal(t, Snapshot{"title": Scalar("Old title")}, oldChanged)
	assert.Equal(t, Snapshot{"title": Scalar("New title")}, newChanged)
}

func TestDiffSnapshotsFieldsSorted(t *testing.T) {
	old := Snapshot{
		"title":    Scalar("a"),
		"status":   Scalar("a"),
		"priority": Scalar("a"),
	}
	new := Snapshot{
		"title":    Scalar("b"),
		"status":   Scalar("b"),
		"priority": Scalar("b"),
	}

	_, _, fields := DiffSnapshots(old, new)
	assert.Equal(t, []string{"priority", "status", "title"}, fields)
}

func TestDiffSnapshotsNoChanges(t *testing.T) {
	snap := Snapshot{
		"title": Scalar("Same"),
		"due":   Date(nil),
	}

	oldChanged, newChanged, fields := DiffSnapshots(snap, snap)
	assert.Empty(t, fields)
	assert.Empty(t, oldChanged)
	assert.Empty(t, newChanged)
}

// A renamed referenced user must not read as a change to the entity
// holding the reference.
func TestRefComparesByIDOnly(t *testing.T) {
	assert.True(t, Ref(7, "alice").Equal(Ref(7, "alice-renamed")))
	assert.False(t, Ref(7, "alice").Equal(Ref(8, "alice")))
}

func TestDateComparesAtDayPrecision(t *testing.T) {
	morning := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 14, 21, 30, 0, 0, time.UTC)
	nextDay := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	assert.True(t, Date(&morning).Equal(Date(&evening)))
	assert.False(t, Date(&morning).Equal(Date(&nextDay)))
	assert.False(t, Date(&morning).Equal(Date(nil)))
}

func TestFieldKindMismatchNeverEqual(t *testing.T) {
	assert.False(t, Scalar("2026-03-14").Equal(Date(nil)))
	assert.False(t, Ref(0, "").Equal(Scalar(nil)))
}

func TestSnapshotToJSONMapShapes(t *testing.T) {
	due := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		"title":    Scalar("Task"),
		"due_date": Date(&due),
		"assignee": Ref(7, "alice"),
	}

	out := snap.ToJSONMap()
	assert.Equal(t, map[string]any{"kind": "scalar", "value": "Task"}, out["title"])
	assert.Equal(t, map[string]any{"kind": "date", "date": "2026-03-14"}, out["due_date"])
	assert.Equal(t, map[string]any{"kind": "ref", "ref_id": uint64(7), "display": "alice"}, out["assignee"])
}

func TestSnapshotToJSONMapNil(t *testing.T) {
	var snap Snapshot
	assert.Nil(t, snap.ToJSONMap())
}

func TestSnapshotTaskUsesPreloadedAssignee(t *testing.T) {
	assigneeID := uint64(7)
	task := &models.Task{
		Title:      "Task",
		Status:     models.TaskStatusTodo,
		Priority:   models.TaskPriorityMedium,
		AssigneeID: &assigneeID,
		Assignee:   &models.User{ID: 7, Username: "alice"},
	}

	resolverCalled := false
	snap := SnapshotTask(task, func(uint64) string {
		resolverCalled = true
		return "from-resolver"
	})

	assert.Equal(t, Ref(7, "alice"), snap["assignee"])
	assert.False(t, resolverCalled, "preloaded relation should satisfy the display lookup")
	// The unset reporter stays a zero ref, no resolver round-trip.
	assert.Equal(t, Ref(0, ""), snap["reporter"])
}

// A task snapshot carries its sprint reference, so moving a task between
// sprints shows up in the audit diff.
func TestSnapshotTaskIncludesSprintRef(t *testing.T) {
	task := &models.Task{
		Title:    "Task",
		Status:   models.TaskStatusTodo,
		Priority: models.TaskPriorityMedium,
		SprintID: 6,
	}
	task.Sprint = models.Sprint{Name: "Sprint One"}
	task.Sprint.ID = 6

	snap := SnapshotTask(task, func(uint64) string { return "" })

	assert.Equal(t, Ref(6, "Sprint One"), snap["sprint"])

	// Without the preloaded relation the ref keeps the id alone.
	task.Sprint = models.Sprint{}
	snap = SnapshotTask(task, func(uint64) string { return "" })
	assert.Equal(t, Ref(6, ""), snap["sprint"])
}
