package domain

import "time"

// Company is a tenant. Deleting it removes its users.
type Company struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// OrgChart is the reporting tree of one company.
type OrgChart struct {
	Company    Company
	Admins     []User
	Managers   []OrgChartManager
	Unassigned []User
}

// OrgChartManager is a manager with their direct reports.
type OrgChartManager struct {
	Manager User
	Reports []User
}
