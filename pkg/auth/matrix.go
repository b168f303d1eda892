package auth

import (
	"encoding/json"
	"sort"
	"strings"
)

// PermissionMatrix is a category -> action -> granted table attached to an
// identity. A matrix produced by this package is always total: every
// canonical category/action pair is present, defaulting to false.
type PermissionMatrix map[Category]map[string]bool

// CategoryActions defines the canonical shape of the permission matrix:
// every category and the actions it supports.
var CategoryActions = map[Category][]string{
	CategoryCases:        {ActionView, ActionCreate, ActionEdit, ActionDelete, ActionAssign, ActionViewAll},
	CategoryClients:      {ActionView, ActionCreate, ActionEdit, ActionDelete, ActionViewAll},
	CategoryAppointments: {ActionView, ActionCreate, ActionEdit, ActionDelete},
	CategoryDocuments:    {ActionView, ActionUpload, ActionDownload, ActionDelete},
	CategoryFinancial:    {ActionView, ActionCreate, ActionEdit, ActionExport},
	CategoryEmployees:    {ActionView, ActionCreate, ActionEdit, ActionDelete, ActionManagePermissions},
	CategoryReports:      {ActionView, ActionCreate, ActionExport, ActionDelete},
	CategoryFirmSettings: {ActionView, ActionEdit, ActionManageSubscription, ActionManageIntegrations},
}

// EmptyMatrix returns an all-false matrix covering every canonical
// category/action pair.
func EmptyMatrix() PermissionMatrix {
	m := make(PermissionMatrix, len(CategoryActions))
	for cat, actions := range CategoryActions {
		entry := make(map[string]bool, len(actions))
		for _, a := range actions {
			entry[a] = false
		}
		m[cat] = entry
	}
	return m
}

// FullMatrix returns an all-true matrix covering every canonical
// category/action pair.
func FullMatrix() PermissionMatrix {
	m := EmptyMatrix()
	for cat, actions := range m {
		for a := range actions {
			m[cat][a] = true
		}
	}
	return m
}

// Has reports whether the matrix grants the exact (category, action) pair.
// Missing entries are false.
func (m PermissionMatrix) Has(cat Category, action string) bool {
	actions, ok := m[cat]
	if !ok {
		return false
	}
	return actions[action]
}

// Grant sets the (category, action) entry to true. Pairs outside the
// canonical shape are ignored.
func (m PermissionMatrix) Grant(cat Category, action string) {
	if !validPair(cat, action) {
		return
	}
	if m[cat] == nil {
		m[cat] = make(map[string]bool)
	}
	m[cat][action] = true
}

// Revoke sets the (category, action) entry to false.
func (m PermissionMatrix) Revoke(cat Category, action string) {
	if m[cat] != nil {
		m[cat][action] = false
	}
}

// Clone returns a deep copy of the matrix.
func (m PermissionMatrix) Clone() PermissionMatrix {
	out := make(PermissionMatrix, len(m))
	for cat, actions := range m {
		entry := make(map[string]bool, len(actions))
		for a, v := range actions {
			entry[a] = v
		}
		out[cat] = entry
	}
	return out
}

// Flatten returns the granted pairs as sorted "category.action" strings.
func (m PermissionMatrix) Flatten() []string {
	var out []string
	for cat, actions := range m {
		for a, granted := range actions {
			if granted {
				out = append(out, string(cat)+"."+a)
			}
		}
	}
	sort.Strings(out)
	return out
}

func validPair(cat Category, action string) bool {
	actions, ok := CategoryActions[cat]
	if !ok {
		return false
	}
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

// DefaultMatrix resolves the canonical permission matrix for a role and
// account type. It is deterministic and total: owners always receive the
// full matrix, every canonical role maps to a fixed matrix, and any value
// outside the role enum yields the all-false matrix. It never fails.
func DefaultMatrix(role Role, accountType AccountType) PermissionMatrix {
	if accountType == AccountOwner {
		return FullMatrix()
	}

	m := EmptyMatrix()
	switch role {
	case RoleAdmin:
		// Office manager: everything except firm settings and financial edits.
		grantAll(m, CategoryCases)
		grantAll(m, CategoryClients)
		grantAll(m, CategoryAppointments)
		grantAll(m, CategoryDocuments)
		grantAll(m, CategoryEmployees)
		grantAll(m, CategoryReports)
		m.Grant(CategoryFinancial, ActionView)
		m.Grant(CategoryFirmSettings, ActionView)
	case RoleLawyer:
		m.Grant(CategoryCases, ActionView)
		m.Grant(CategoryCases, ActionCreate)
		m.Grant(CategoryCases, ActionEdit)
		m.Grant(CategoryCases, ActionAssign)
		m.Grant(CategoryClients, ActionView)
		m.Grant(CategoryClients, ActionCreate)
		m.Grant(CategoryClients, ActionEdit)
		m.Grant(CategoryAppointments, ActionView)
		m.Grant(CategoryAppointments, ActionCreate)
		m.Grant(CategoryAppointments, ActionEdit)
		m.Grant(CategoryDocuments, ActionView)
		m.Grant(CategoryDocuments, ActionUpload)
		m.Grant(CategoryDocuments, ActionDownload)
		m.Grant(CategoryReports, ActionView)
	case RoleParalegal:
		m.Grant(CategoryCases, ActionView)
		m.Grant(CategoryCases, ActionEdit)
		m.Grant(CategoryClients, ActionView)
		m.Grant(CategoryAppointments, ActionView)
		m.Grant(CategoryAppointments, ActionCreate)
		m.Grant(CategoryDocuments, ActionView)
		m.Grant(CategoryDocuments, ActionUpload)
		m.Grant(CategoryDocuments, ActionDownload)
	case RoleSecretary:
		m.Grant(CategoryClients, ActionView)
		m.Grant(CategoryClients, ActionCreate)
		m.Grant(CategoryClients, ActionEdit)
		m.Grant(CategoryAppointments, ActionView)
		m.Grant(CategoryAppointments, ActionCreate)
		m.Grant(CategoryAppointments, ActionEdit)
		m.Grant(CategoryAppointments, ActionDelete)
		m.Grant(CategoryDocuments, ActionView)
		m.Grant(CategoryDocuments, ActionDownload)
	case RoleAccountant:
		m.Grant(CategoryFinancial, ActionView)
		m.Grant(CategoryFinancial, ActionCreate)
		m.Grant(CategoryFinancial, ActionEdit)
		m.Grant(CategoryFinancial, ActionExport)
		m.Grant(CategoryReports, ActionView)
		m.Grant(CategoryReports, ActionCreate)
		m.Grant(CategoryReports, ActionExport)
		m.Grant(CategoryClients, ActionView)
	default:
		// Unrecognized role: fail closed with the all-false matrix.
	}
	return m
}

func grantAll(m PermissionMatrix, cat Category) {
	for _, a := range CategoryActions[cat] {
		m.Grant(cat, a)
	}
}

// NormalizePermissions converts a stored permission representation into a
// canonical nested matrix. Three shapes are accepted for compatibility with
// rows written by earlier importers:
//
//	{"cases":{"view":true,"edit":false}}   nested map (canonical)
//	{"cases.view":true,"cases.edit":false} flat map
//	["cases.view","clients.view"]          flat set
//
// Entries outside the canonical category/action shape are dropped.
// Unparseable input yields the all-false matrix rather than an error.
func NormalizePermissions(raw []byte) PermissionMatrix {
	m := EmptyMatrix()
	if len(raw) == 0 {
		return m
	}

	var nested map[Category]map[string]bool
	if err := json.Unmarshal(raw, &nested); err == nil {
		for cat, actions := range nested {
			for a, granted := range actions {
				if granted {
					m.Grant(cat, a)
				}
			}
		}
		return m
	}

	var flat map[string]bool
	if err := json.Unmarshal(raw, &flat); err == nil {
		for key, granted := range flat {
			if granted {
				grantFlat(m, key)
			}
		}
		return m
	}

	var set []string
	if err := json.Unmarshal(raw, &set); err == nil {
		for _, key := range set {
			grantFlat(m, key)
		}
	}
	return m
}

func grantFlat(m PermissionMatrix, key string) {
	cat, action, ok := strings.Cut(key, ".")
	if !ok {
		return
	}
	m.Grant(Category(cat), action)
}
