package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

type fieldState uint8

const (
	fieldAbsent fieldState = iota
	fieldSet
	fieldCleared
)

// Field is one property of a partial update. It is either absent (leave the entity alone),
// set to a value, or cleared (reset to its empty/null state).
//
// A JSON null decodes as absent: only an update's clear list can clear a property.
type Field[T any] struct {
	value T
	state fieldState
}

func Set[T any](value T) Field[T] {
	return Field[T]{value: value, state: fieldSet}
}

func Clear[T any]() Field[T] {
	return Field[T]{state: fieldCleared}
}

func (f Field[T]) IsSet() bool     { return f.state == fieldSet }
func (f Field[T]) IsCleared() bool { return f.state == fieldCleared }
func (f Field[T]) IsAbsent() bool  { return f.state == fieldAbsent }

func (f Field[T]) Value() (T, bool) {
	return f.value, f.state == fieldSet
}

// IsZero lets `omitzero` drop fields that carry no value when a partial is encoded.
func (f Field[T]) IsZero() bool {
	return f.state != fieldSet
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Field[T]{}
		return nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*f = Set(value)
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != fieldSet {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

func (f *Field[T]) clear() {
	*f = Clear[T]()
}

// applyField copies a set value into dst. A cleared field resets dst to its zero value.
func applyField[T any](dst *T, f Field[T]) {
	switch f.state {
	case fieldSet:
		*dst = f.value
	case fieldCleared:
		var zero T
		*dst = zero
	}
}

// applyNullable is applyField for properties the entity stores as a pointer.
func applyNullable[T any](dst **T, f Field[T]) {
	switch f.state {
	case fieldSet:
		value := f.value
		*dst = &value
	case fieldCleared:
		*dst = nil
	}
}

// clearByName runs the clear func registered for each name and returns the names nothing
// was registered for. Matching ignores case.
func clearByName(names []string, fields map[string]func()) []string {
	var unknown []string
	for _, name := range names {
		found := false
		for key, clear := range fields {
			if strings.EqualFold(key, name) {
				clear()
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, name)
		}
	}
	return unknown
}
