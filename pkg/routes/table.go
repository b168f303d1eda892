package routes

import "github.com/chambersapp/chambers/pkg/auth"

// DefaultTable is the route-permission table for the Chambers application:
// server-rendered pages under /app and the JSON API under /api/v1.
//
// Detail routes put the action segment before the {id} wildcard so that
// literal routes (e.g. /cases/new) never collide with wildcard routes at
// the same depth; NewRegistry enforces this at startup.
func DefaultTable() []Entry {
	return []Entry{
		// Pages
		{Pattern: "/app/cases", Category: auth.CategoryCases, Action: auth.ActionView},
		{Pattern: "/app/cases/new", Category: auth.CategoryCases, Action: auth.ActionCreate},
		{Pattern: "/app/cases/view/{id}", Category: auth.CategoryCases, Action: auth.ActionView},
		{Pattern: "/app/cases/edit/{id}", Category: auth.CategoryCases, Action: auth.ActionEdit},
		{Pattern: "/app/clients", Category: auth.CategoryClients, Action: auth.ActionView},
		{Pattern: "/app/clients/new", Category: auth.CategoryClients, Action: auth.ActionCreate},
		{Pattern: "/app/clients/view/{id}", Category: auth.CategoryClients, Action: auth.ActionView},
		{Pattern: "/app/clients/edit/{id}", Category: auth.CategoryClients, Action: auth.ActionEdit},
		{Pattern: "/app/appointments", Category: auth.CategoryAppointments, Action: auth.ActionView},
		{Pattern: "/app/appointments/new", Category: auth.CategoryAppointments, Action: auth.ActionCreate},
		{Pattern: "/app/documents", Category: auth.CategoryDocuments, Action: auth.ActionView},
		{Pattern: "/app/documents/upload", Category: auth.CategoryDocuments, Action: auth.ActionUpload},
		{Pattern: "/app/financial", Category: auth.CategoryFinancial, Action: auth.ActionView},
		{Pattern: "/app/reports", Category: auth.CategoryReports, Action: auth.ActionView},
		{Pattern: "/app/employees", Category: auth.CategoryEmployees, Action: auth.ActionView},
		{Pattern: "/app/employees/new", Category: auth.CategoryEmployees, Action: auth.ActionCreate, OwnerOnly: true},
		{Pattern: "/app/employees/edit/{id}", Category: auth.CategoryEmployees, Action: auth.ActionEdit},
		{Pattern: "/app/employees/permissions/{id}", Category: auth.CategoryEmployees, Action: auth.ActionManagePermissions, OwnerOnly: true},
		{Pattern: "/app/settings", Category: auth.CategoryFirmSettings, Action: auth.ActionView, OwnerOnly: true},
		{Pattern: "/app/settings/subscription", Category: auth.CategoryFirmSettings, Action: auth.ActionManageSubscription, OwnerOnly: true},

		// API
		{Pattern: "/api/v1/cases", Category: auth.CategoryCases, Action: auth.ActionView},
		{Pattern: "/api/v1/cases/create", Category: auth.CategoryCases, Action: auth.ActionCreate},
		{Pattern: "/api/v1/cases/view/{id}", Category: auth.CategoryCases, Action: auth.ActionView},
		{Pattern: "/api/v1/cases/update/{id}", Category: auth.CategoryCases, Action: auth.ActionEdit},
		{Pattern: "/api/v1/cases/delete/{id}", Category: auth.CategoryCases, Action: auth.ActionDelete},
		{Pattern: "/api/v1/cases/assign/{id}", Category: auth.CategoryCases, Action: auth.ActionAssign},
		{Pattern: "/api/v1/clients", Category: auth.CategoryClients, Action: auth.ActionView},
		{Pattern: "/api/v1/clients/create", Category: auth.CategoryClients, Action: auth.ActionCreate},
		{Pattern: "/api/v1/clients/view/{id}", Category: auth.CategoryClients, Action: auth.ActionView},
		{Pattern: "/api/v1/clients/update/{id}", Category: auth.CategoryClients, Action: auth.ActionEdit},
		{Pattern: "/api/v1/clients/delete/{id}", Category: auth.CategoryClients, Action: auth.ActionDelete},
		{Pattern: "/api/v1/appointments", Category: auth.CategoryAppointments, Action: auth.ActionView},
		{Pattern: "/api/v1/appointments/create", Category: auth.CategoryAppointments, Action: auth.ActionCreate},
		{Pattern: "/api/v1/appointments/update/{id}", Category: auth.CategoryAppointments, Action: auth.ActionEdit},
		{Pattern: "/api/v1/appointments/delete/{id}", Category: auth.CategoryAppointments, Action: auth.ActionDelete},
		{Pattern: "/api/v1/documents", Category: auth.CategoryDocuments, Action: auth.ActionView},
		{Pattern: "/api/v1/documents/upload", Category: auth.CategoryDocuments, Action: auth.ActionUpload},
		{Pattern: "/api/v1/documents/download/{id}", Category: auth.CategoryDocuments, Action: auth.ActionDownload},
		{Pattern: "/api/v1/documents/delete/{id}", Category: auth.CategoryDocuments, Action: auth.ActionDelete},
		{Pattern: "/api/v1/financial", Category: auth.CategoryFinancial, Action: auth.ActionView},
		{Pattern: "/api/v1/financial/create", Category: auth.CategoryFinancial, Action: auth.ActionCreate},
		{Pattern: "/api/v1/financial/export", Category: auth.CategoryFinancial, Action: auth.ActionExport},
		{Pattern: "/api/v1/reports", Category: auth.CategoryReports, Action: auth.ActionView},
		{Pattern: "/api/v1/reports/export", Category: auth.CategoryReports, Action: auth.ActionExport},
		{Pattern: "/api/v1/employees", Category: auth.CategoryEmployees, Action: auth.ActionView},
		{Pattern: "/api/v1/employees/create", Category: auth.CategoryEmployees, Action: auth.ActionCreate, OwnerOnly: true},
		{Pattern: "/api/v1/employees/update/{id}", Category: auth.CategoryEmployees, Action: auth.ActionEdit},
		{Pattern: "/api/v1/employees/permissions/{id}", Category: auth.CategoryEmployees, Action: auth.ActionManagePermissions, OwnerOnly: true},
		{Pattern: "/api/v1/employees/deactivate/{id}", Category: auth.CategoryEmployees, Action: auth.ActionDelete, OwnerOnly: true},
		{Pattern: "/api/v1/firm/settings", Category: auth.CategoryFirmSettings, Action: auth.ActionView, OwnerOnly: true},
		{Pattern: "/api/v1/firm/settings/update", Category: auth.CategoryFirmSettings, Action: auth.ActionEdit, OwnerOnly: true},
		{Pattern: "/api/v1/firm/subscription", Category: auth.CategoryFirmSettings, Action: auth.ActionManageSubscription, OwnerOnly: true},
		{Pattern: "/api/v1/firm/usage", Category: auth.CategoryFirmSettings, Action: auth.ActionView, OwnerOnly: true},
	}
}

// Default compiles the default table. Panics only on a programming error
// in the table itself, which the registry tests catch.
func Default() *Registry {
	return MustNewRegistry(DefaultTable())
}
