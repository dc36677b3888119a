package models

import (
	"encoding/json"
	"time"
)

// The Nullable* types distinguish three states a JSON field can be in:
// absent (Set=false), explicitly null (Set=true, Valid=false), and
// present with a value (Set=true, Valid=true). Plain pointer types
// collapse the first two, which matters for schema migrations: a field
// missing from an old payload takes the documented default, while an
// explicit null means the user cleared it.

// NullableString is a tri-state string field.
type NullableString struct {
	Value string
	Valid bool // Value is non-null
	Set   bool // field appeared in the JSON document
}

func (ns *NullableString) UnmarshalJSON(data []byte) error {
	ns.Set = true
	if string(data) == "null" {
		ns.Valid = false
		ns.Value = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ns.Value = s
	ns.Valid = true
	return nil
}

func (ns NullableString) MarshalJSON() ([]byte, error) {
	if !ns.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(ns.Value)
}

// Ptr returns the value as *string, nil when null or absent.
func (ns NullableString) Ptr() *string {
	if !ns.Valid {
		return nil
	}
	return &ns.Value
}

// NullableFloat64 is a tri-state numeric field.
type NullableFloat64 struct {
	Value float64
	Valid bool
	Set   bool
}

func (nf *NullableFloat64) UnmarshalJSON(data []byte) error {
	nf.Set = true
	if string(data) == "null" {
		nf.Valid = false
		nf.Value = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	nf.Value = f
	nf.Valid = true
	return nil
}

func (nf NullableFloat64) MarshalJSON() ([]byte, error) {
	if !nf.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(nf.Value)
}

// Ptr returns the value as *float64, nil when null or absent.
func (nf NullableFloat64) Ptr() *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Value
}

// NullableTime is a tri-state timestamp field.
type NullableTime struct {
	Value time.Time
	Valid bool
	Set   bool
}

func (nt *NullableTime) UnmarshalJSON(data []byte) error {
	nt.Set = true
	if string(data) == "null" {
		nt.Valid = false
		nt.Value = time.Time{}
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	nt.Value = t
	nt.Valid = true
	return nil
}

func (nt NullableTime) MarshalJSON() ([]byte, error) {
	if !nt.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(nt.Value)
}

// Ptr returns the value as *time.Time, nil when null or absent.
func (nt NullableTime) Ptr() *time.Time {
	if !nt.Valid {
		return nil
	}
	return &nt.Value
}
