// Package firms manages law firm tenants: the firm record and its
// subscription plan, employee identity provisioning, and quota admission
// for plan-limited resources.
//
// A firm's ID is its owner identity's ID, so tenant resolution and firm
// lookup share one key. Plan limits are derived from the plan tier at
// check time rather than stored per firm, so a plan change through the
// subscription collaborator takes effect on the next admission check
// without any limit rows to reconcile.
//
// Admission for quota-bound resources goes through AdmitCase and
// AdmitEmployee, which wrap the live count and the insert in one
// transaction holding the firm row locked. Concurrent creates for the
// same firm serialize there, so a plan limit cannot be overshot by
// racing requests. The advisory CheckCaseQuota and CheckEmployeeQuota
// variants exist for UI display only and never gate a write.
package firms
