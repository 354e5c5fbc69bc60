package model

// Machine is a row of the equipment reference table. SVNCode is the code
// operators type when submitting a status; Project is reported as the operation.
type Machine struct {
	ID      int64  `gorm:"column:Id;primaryKey" json:"id"`
	SVNCode string `gorm:"column:SVNCode;size:64;uniqueIndex;not null" json:"svnCode"`
	Project string `gorm:"column:Project;size:128" json:"project"`
}

// TableName keeps the table name used by the existing SQL Server schema.
func (Machine) TableName() string {
	return "SVN_Equipment_Machine_Info"
}
