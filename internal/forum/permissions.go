package forum

import "github.com/zfogg/tinyforum/backend/internal/models"

// FormKind names the set of editable fields an actor gets for a thread or
// post. FormNone means no access.
type FormKind string

const (
	FormNone            FormKind = ""
	FormCreate          FormKind = "create"
	FormCreateModerator FormKind = "create_moderator"
	FormUpdate          FormKind = "update"
	FormModerate        FormKind = "moderate"
)

// Field names used in forms and update payloads.
const (
	FieldTitle            = "title"
	FieldText             = "text"
	FieldIsPinned         = "is_pinned"
	FieldModerationStatus = "moderation_status"
	FieldCloseThread      = "close_thread"
	FieldReason           = "reason"
	FieldNotes            = "notes"
)

// Form is the outcome of a permission check.
type Form struct {
	Kind   FormKind `json:"kind"`
	Fields []string `json:"fields"`
}

// Allowed reports whether any form was granted.
func (f Form) Allowed() bool { return f.Kind != FormNone }

// Allows reports whether field is editable through f.
func (f Form) Allows(field string) bool {
	for _, name := range f.Fields {
		if name == field {
			return true
		}
	}
	return false
}

// ThreadPermission decides which thread form the actor may use. A nil
// thread asks about creating a new one.
func ThreadPermission(actor Actor, thread *models.Thread) Form {
	if !actor.Authenticated() {
		return Form{}
	}
	switch {
	case thread == nil && actor.IsModerator:
		return Form{Kind: FormCreateModerator, Fields: []string{FieldTitle, FieldIsPinned, FieldText}}
	case thread == nil:
		return Form{Kind: FormCreate, Fields: []string{FieldTitle, FieldText}}
	case actor.IsModerator:
		return withClose(Form{Kind: FormModerate, Fields: []string{FieldTitle, FieldIsPinned, FieldModerationStatus}}, thread)
	case actor.owns(thread.AuthoredByID):
		return withClose(Form{Kind: FormUpdate, Fields: []string{FieldTitle}}, thread)
	}
	return Form{}
}

// Closing is only offered while the thread is open; it cannot be undone
// through a form.
func withClose(f Form, thread *models.Thread) Form {
	if !thread.IsClosed() {
		f.Fields = append(f.Fields, FieldCloseThread)
	}
	return f
}

// PostPermission decides which post form the actor may use inside thread.
// A nil post asks about replying.
func PostPermission(actor Actor, thread *models.Thread, post *models.Post) Form {
	if !actor.Authenticated() || thread == nil || thread.IsClosed() {
		return Form{}
	}
	switch {
	case post == nil:
		return Form{Kind: FormCreate, Fields: []string{FieldText}}
	case actor.IsModerator:
		return Form{Kind: FormModerate, Fields: []string{FieldText, FieldModerationStatus}}
	case actor.owns(post.AuthoredByID):
		return Form{Kind: FormUpdate, Fields: []string{FieldText}}
	}
	return Form{}
}
