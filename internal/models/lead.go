package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Assignee is a weak reference to the staff member a lead is assigned to.
type Assignee struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts either a bare id or an {id, name} object.
func (a *Assignee) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '{' {
		type plain Assignee
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*a = Assignee(p)
		return nil
	}
	raw := string(bytes.Trim(data, `"`))
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// Lead is a prospective customer tracked through the status lifecycle.
type Lead struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Call           string    `json:"call"`
	Email          string    `json:"email"`
	Status         string    `json:"status"`
	Message        string    `json:"message"`
	FollowUpDate   *string   `json:"follow_up_date"`
	FollowUpTime   *string   `json:"follow_up_time"`
	AssignedTo     *Assignee `json:"assigned_to,omitempty"`
	AssignedToName string    `json:"assigned_to_name,omitempty"`
	TeamLeader     string    `json:"team_leader,omitempty"`
	CreatedDate    string    `json:"created_date,omitempty"`
	UpdatedDate    string    `json:"updated_date,omitempty"`
}

// Normalize folds the denormalized assignee name into AssignedTo.
func (l *Lead) Normalize() {
	if l.AssignedTo != nil && l.AssignedTo.ID == 0 && l.AssignedTo.Name == "" {
		l.AssignedTo = nil
	}
	if l.AssignedTo != nil && l.AssignedTo.Name == "" {
		l.AssignedTo.Name = l.AssignedToName
	}
}

// HasPhone reports whether the dial and WhatsApp actions can be offered.
func (l *Lead) HasPhone() bool { return l.Call != "" }
