package services

import (
	"sort"
	"time"

	"github.com/loomplan/loomplan-api/internal/models"
)

// FieldKind discriminates the snapshot value variants. Every snapshot
// entry is exactly one of scalar, date or reference; consumers switch on
// the kind instead of guessing from the JSON shape.
type FieldKind string

const (
	FieldScalar FieldKind = "scalar"
	FieldDate   FieldKind = "date"
	FieldRef    FieldKind = "ref"
)

const snapshotDateLayout = "2006-01-02"

// FieldValue is a single captured field. Scalars carry the raw value,
// dates are normalized to a day-precision string, references carry the
// target id plus a human-readable display resolved at capture time.
type FieldValue struct {
	Kind    FieldKind `json:"kind"`
	Value   any       `json:"value,omitempty"`
	Date    string    `json:"date,omitempty"`
	RefID   uint64    `json:"ref_id,omitempty"`
	Display string    `json:"display,omitempty"`
}

// Scalar wraps a plain value.
func Scalar(v any) FieldValue {
	return FieldValue{Kind: FieldScalar, Value: v}
}

// Date wraps an optional timestamp at day precision.
func Date(t *time.Time) FieldValue {
	fv := FieldValue{Kind: FieldDate}
	if t != nil {
		fv.Date = t.Format(snapshotDateLayout)
	}
	return fv
}

// Ref wraps a foreign-key reference. A zero id means the reference is
// unset.
func Ref(id uint64, display string) FieldValue {
	return FieldValue{Kind: FieldRef, RefID: id, Display: display}
}

// Equal compares two captured values. References compare by id only;
// the display text is informational and a renamed target must not read
// as a change to the referencing entity.
func (f FieldValue) Equal(other FieldValue) bool {
	if f.Kind != other.Kind {
		return false
	}
	switch f.Kind {
	case FieldDate:
		return f.Date == other.Date
	case FieldRef:
		return f.RefID == other.RefID
	default:
		return f.Value == other.Value
	}
}

// Snapshot is a point-in-time capture of an entity's audited fields.
type Snapshot map[string]FieldValue

// ToJSONMap converts a snapshot to the schemaless form stored in the
// activity log. Nil snapshots stay nil so create and delete entries can
// omit the side they do not have.
func (s Snapshot) ToJSONMap() models.JSONMap {
	if s == nil {
		return nil
	}
	out := make(models.JSONMap, len(s))
	for name, fv := range s {
		entry := map[string]any{"kind": string(fv.Kind)}
		switch fv.Kind {
		case FieldDate:
			entry["date"] = fv.Date
		case FieldRef:
			entry["ref_id"] = fv.RefID
			entry["display"] = fv.Display
		default:
			entry["value"] = fv.Value
		}
		out[name] = entry
	}
	return out
}

// DiffSnapshots returns the fields whose values differ, with the old and
// new sides restricted to just those fields. Field names come back
// sorted so log entries are stable.
func DiffSnapshots(old, new Snapshot) (Snapshot, Snapshot, []string) {
	oldChanged := Snapshot{}
	newChanged := Snapshot{}
	var fields []string

	for name, newVal := range new {
		oldVal, existed := old[name]
		if existed && oldVal.Equal(newVal) {
			continue
		}
		fields = append(fields, name)
		if existed {
			oldChanged[name] = oldVal
		}
		newChanged[name] = newVal
	}
	for name, oldVal := range old {
		if _, kept := new[name]; !kept {
			fields = append(fields, name)
			oldChanged[name] = oldVal
		}
	}

	sort.Strings(fields)
	return oldChanged, newChanged, fields
}

// userRefValue prefers the preloaded relation for the display text and
// otherwise asks the resolver, which the audit service backs with a
// repository lookup.
func userRefValue(id *uint64, loaded *models.User, resolve func(uint64) string) FieldValue {
	if id == nil {
		return Ref(0, "")
	}
	if loaded != nil && loaded.ID == *id {
		return Ref(*id, loaded.Username)
	}
	return Ref(*id, resolve(*id))
}

// SnapshotWorkspace captures the audited fields of a workspace.
func SnapshotWorkspace(ws *models.Workspace, resolve func(uint64) string) Snapshot {
	return Snapshot{
		"name":        Scalar(ws.Name),
		"description": Scalar(ws.Description),
		"owner":       userRefValue(&ws.OwnerID, nil, resolve),
	}
}

// SnapshotProject captures the audited fields of a project.
func SnapshotProject(p *models.Project) Snapshot {
	return Snapshot{
		"name":        Scalar(p.Name),
		"description": Scalar(p.Description),
		"status":      Scalar(string(p.Status)),
		"visibility":  Scalar(string(p.Visibility)),
		"archived":    Scalar(p.Archived),
		"start_date":  Date(p.StartDate),
		"end_date":    Date(p.EndDate),
	}
}

// SnapshotMilestone captures the audited fields of a milestone.
func SnapshotMilestone(m *models.Milestone) Snapshot {
	return Snapshot{
		"name":        Scalar(m.Name),
		"description": Scalar(m.Description),
		"status":      Scalar(string(m.Status)),
		"start_date":  Date(m.StartDate),
		"end_date":    Date(m.EndDate),
	}
}

// SnapshotSprint captures the audited fields of a sprint.
func SnapshotSprint(sp *models.Sprint) Snapshot {
	return Snapshot{
		"name":        Scalar(sp.Name),
		"description": Scalar(sp.Description),
		"status":      Scalar(string(sp.Status)),
		"start_date":  Date(sp.StartDate),
		"end_date":    Date(sp.EndDate),
	}
}

// SnapshotTask captures the audited fields of a task. The sprint
// display falls back to an empty string when the relation is not
// preloaded; references diff by id, so the display is cosmetic.
func SnapshotTask(t *models.Task, resolve func(uint64) string) Snapshot {
	sprintDisplay := ""
	if t.Sprint.ID == t.SprintID {
		sprintDisplay = t.Sprint.Name
	}
	return Snapshot{
		"title":       Scalar(t.Title),
		"description": Scalar(t.Description),
		"status":      Scalar(string(t.Status)),
		"priority":    Scalar(string(t.Priority)),
		"sprint":      Ref(t.SprintID, sprintDisplay),
		"assignee":    userRefValue(t.AssigneeID, t.Assignee, resolve),
		"reporter":    userRefValue(t.ReporterID, t.Reporter, resolve),
		"start_date":  Date(t.StartDate),
		"due_date":    Date(t.DueDate),
	}
}

// SnapshotWorkspaceMember captures the audited fields of a workspace
// membership.
func SnapshotWorkspaceMember(m *models.WorkspaceMember, resolve func(uint64) string) Snapshot {
	snap := Snapshot{
		"user":     userRefValue(&m.UserID, nil, resolve),
		"is_admin": Scalar(m.IsAdmin),
	}
	if m.RoleID != nil {
		display := ""
		if m.Role != nil {
			display = m.Role.Name
		}
		snap["role"] = Ref(*m.RoleID, display)
	} else {
		snap["role"] = Ref(0, "")
	}
	return snap
}

// SnapshotProjectMember captures the audited fields of a project
// membership.
func SnapshotProjectMember(m *models.ProjectMember, resolve func(uint64) string) Snapshot {
	snap := Snapshot{
		"user": userRefValue(&m.UserID, nil, resolve),
	}
	if m.RoleID != nil {
		display := ""
		if m.Role != nil {
			display = m.Role.Name
		}
		snap["role"] = Ref(*m.RoleID, display)
	} else {
		snap["role"] = Ref(0, "")
	}
	return snap
}
