package types

import (
	"encoding/json"
	"time"
)

// NotificationType classifies a notification. The server may introduce new
// types at any time; values this client does not recognize normalize to
// NotificationTypeUnknown.
type NotificationType string

const (
	NotificationTypeCourseEnrollment NotificationType = "course_enrollment"
	NotificationTypeSessionStart     NotificationType = "session_start"
	NotificationTypeExamResult       NotificationType = "exam_result"
	NotificationTypeCourseUpdate     NotificationType = "course_update"
	NotificationTypeAnnouncement     NotificationType = "announcement"
	NotificationTypeAssignmentDue    NotificationType = "assignment_due"
	NotificationTypeUnknown          NotificationType = "unknown"
)

var knownNotificationTypes = map[NotificationType]struct{}{
	NotificationTypeCourseEnrollment: {},
	NotificationTypeSessionStart:     {},
	NotificationTypeExamResult:       {},
	NotificationTypeCourseUpdate:     {},
	NotificationTypeAnnouncement:     {},
	NotificationTypeAssignmentDue:    {},
}

// ParseNotificationType maps a raw server value to a NotificationType,
// falling back to NotificationTypeUnknown.
func ParseNotificationType(s string) NotificationType {
	t := NotificationType(s)
	if _, ok := knownNotificationTypes[t]; ok {
		return t
	}
	return NotificationTypeUnknown
}

// Notification is a single inbox entry. The ID is assigned by the server and
// is the dedup/merge key: the inbox never holds two entries with the same ID.
type Notification struct {
	ID        int64            `db:"id" json:"id"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Type      NotificationType `db:"notification_type" json:"notification_type"`
	Read      bool             `db:"is_read" json:"is_read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`

	// Data carries untyped auxiliary context. Consumers must not assume
	// any structure; it may be absent.
	Data JSONMap `db:"data" json:"data,omitempty"`
}

// UnmarshalJSON decodes a notification and normalizes the type field.
func (n *Notification) UnmarshalJSON(b []byte) error {
	type alias Notification
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	a.Type = ParseNotificationType(string(a.Type))
	*n = Notification(a)
	return nil
}

// NotificationList is the hydration response. The server sends either an
// envelope `{"results": [...]}` or a bare array.
type NotificationList struct {
	Results []Notification `json:"results"`
}

// UnmarshalJSON accepts both the enveloped and the bare-array shape.
func (l *NotificationList) UnmarshalJSON(b []byte) error {
	var bare []Notification
	if err := json.Unmarshal(b, &bare); err == nil {
		l.Results = bare
		return nil
	}

	type alias NotificationList
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*l = NotificationList(a)
	return nil
}
