package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringList stores an ordered list of strings as a JSON array.
type StringList []string

// Value implements driver.Valuer for database serialization.
func (l StringList) Value() (driver.Value, error) {
	values := make([]string, 0, len(l))
	values = append(values, l...)
	data, errMarshal := json.Marshal(values)
	if errMarshal != nil {
		return nil, fmt.Errorf("string list marshal: %w", errMarshal)
	}
	return data, nil
}

// Scan implements sql.Scanner for database deserialization.
func (l *StringList) Scan(value any) error {
	if l == nil {
		return fmt.Errorf("string list scan: nil receiver")
	}
	if value == nil {
		*l = StringList{}
		return nil
	}
	switch typed := value.(type) {
	case []byte:
		return parseStringListFromBytes(l, typed)
	case string:
		return parseStringListFromBytes(l, []byte(typed))
	default:
		return fmt.Errorf("string list scan: unsupported type %T", value)
	}
}

func parseStringListFromBytes(target *StringList, data []byte) error {
	if len(data) == 0 {
		*target = StringList{}
		return nil
	}
	var list []string
	if errList := json.Unmarshal(data, &list); errList == nil {
		*target = StringList(list)
		return nil
	}
	var single string
	if errSingle := json.Unmarshal(data, &single); errSingle == nil {
		*target = StringList{single}
		return nil
	}
	return fmt.Errorf("string list scan: invalid json")
}

// Clean trims entries and removes empties and duplicates while keeping order.
func (l StringList) Clean() StringList {
	if len(l) == 0 {
		return StringList{}
	}
	seen := make(map[string]struct{}, len(l))
	cleaned := make(StringList, 0, len(l))
	for _, item := range l {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned
}

// Contains reports whether the list holds the given entry.
func (l StringList) Contains(item string) bool {
	for _, candidate := range l {
		if candidate == item {
			return true
		}
	}
	return false
}

// SecurityQuestion pairs a question with the hash of its answer.
type SecurityQuestion struct {
	Question   string `json:"question"`
	AnswerHash string `json:"answer_hash"`
}

// QuestionList stores security questions as a JSON array.
type QuestionList []SecurityQuestion

// Value implements driver.Valuer for database serialization.
func (q QuestionList) Value() (driver.Value, error) {
	items := make([]SecurityQuestion, 0, len(q))
	items = append(items, q...)
	data, errMarshal := json.Marshal(items)
	if errMarshal != nil {
		return nil, fmt.Errorf("question list marshal: %w", errMarshal)
	}
	return data, nil
}

// Scan implements sql.Scanner for database deserialization.
func (q *QuestionList) Scan(value any) error {
	if q == nil {
		return fmt.Errorf("question list scan: nil receiver")
	}
	if value == nil {
		*q = QuestionList{}
		return nil
	}
	var data []byte
	switch typed := value.(type) {
	case []byte:
		data = typed
	case string:
		data = []byte(typed)
	default:
		return fmt.Errorf("question list scan: unsupported type %T", value)
	}
	if len(data) == 0 {
		*q = QuestionList{}
		return nil
	}
	var list []SecurityQuestion
	if errUnmarshal := json.Unmarshal(data, &list); errUnmarshal != nil {
		return fmt.Errorf("question list scan: invalid json")
	}
	*q = QuestionList(list)
	return nil
}
