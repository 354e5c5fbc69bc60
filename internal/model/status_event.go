package model

import "time"

// StatusEvent is one recorded status change of a machine (insert-only history).
type StatusEvent struct {
	ID          int64      `gorm:"column:Id;primaryKey;autoIncrement" json:"id"`
	Code        string     `gorm:"column:Code;size:64;not null;index" json:"code"`
	Name        string     `gorm:"column:Name;size:64" json:"name"`
	State       string     `gorm:"column:State;size:128;not null" json:"state"`
	Operation   string     `gorm:"column:Operation;size:128" json:"operation"`
	Description string     `gorm:"column:Description;size:1000" json:"description"`
	Image       string     `gorm:"column:Image;size:512" json:"image"`
	Datetime    *time.Time `gorm:"column:Datetime;index" json:"datetime"` // nullable in storage
}

// TableName keeps the table name used by the existing SQL Server schema.
func (StatusEvent) TableName() string {
	return "SVN_Equipment_Info_History"
}

// HasTimestamp reports whether the event can take part in interval derivation.
func (e StatusEvent) HasTimestamp() bool {
	return e.Datetime != nil
}
