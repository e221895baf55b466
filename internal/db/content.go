package db

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// ContentType 标识版本与计划任务所指向的内容类别。
type ContentType string

const (
	ContentTutorial ContentType = "tutorial"
	ContentPage     ContentType = "page"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTutorial, ContentPage:
		return true
	}
	return false
}

// ParseContentType accepts singular or plural names, case-insensitively.
func ParseContentType(raw string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "tutorial", "tutorials":
		return ContentTutorial, nil
	case "page", "pages":
		return ContentPage, nil
	}
	return "", fmt.Errorf("unknown content type %q", raw)
}

// Action 是计划任务可执行的状态变更。零值不是合法动作。
type Action uint8

const (
	ActionPublish Action = iota + 1
	ActionUnpublish
	ActionDelete
)

var actionNames = map[Action]string{
	ActionPublish:   "publish",
	ActionUnpublish: "unpublish",
	ActionDelete:    "delete",
}

// ParseAction converts the stored or user supplied name into an Action.
func ParseAction(raw string) (Action, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for action, candidate := range actionNames {
		if candidate == name {
			return action, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", raw)
}

// Valid reports whether a is one of the declared actions.
func (a Action) Valid() bool {
	_, ok := actionNames[a]
	return ok
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// MarshalText encodes the action by name for JSON payloads.
func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid action %d", uint8(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText decodes an action name.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value stores the action name so the column stays readable.
func (a Action) Value() (driver.Value, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid action %d", uint8(a))
	}
	return a.String(), nil
}

// Scan reads an action name written by Value.
func (a *Action) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case nil:
		*a = 0
		return nil
	}
	return fmt.Errorf("cannot scan %T into Action", src)
}

// GormDataType keeps the column a plain string in every dialect.
func (Action) GormDataType() string {
	return "string"
}
