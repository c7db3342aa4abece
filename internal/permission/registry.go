// Package permission is the compile-time catalog of grantable capabilities.
// Identifiers are "resource:action" strings; categories only group them.
package permission

const (
	StudentCreate = "student:create"
	StudentRead   = "student:read"
	StudentUpdate = "student:update"
	StudentDelete = "student:delete"

	TeacherCreate = "teacher:create"
	TeacherRead   = "teacher:read"
	TeacherUpdate = "teacher:update"
	TeacherDelete = "teacher:delete"

	ClassCreate = "class:create"
	ClassRead   = "class:read"
	ClassUpdate = "class:update"
	ClassDelete = "class:delete"

	SubjectCreate = "subject:create"
	SubjectRead   = "subject:read"
	SubjectUpdate = "subject:update"
	SubjectDelete = "subject:delete"

	GradeCreate = "grade:create"
	GradeRead   = "grade:read"
	GradeUpdate = "grade:update"
	GradeDelete = "grade:delete"

	AttendanceCreate = "attendance:create"
	AttendanceRead   = "attendance:read"
	AttendanceUpdate = "attendance:update"

	LibraryCreate = "library:create"
	LibraryRead   = "library:read"
	LibraryUpdate = "library:update"
	LibraryDelete = "library:delete"
	LibraryIssue  = "library:issue"

	PayrollCreate  = "payroll:create"
	PayrollRead    = "payroll:read"
	PayrollUpdate  = "payroll:update"
	PayrollApprove = "payroll:approve"

	FeeCreate = "fee:create"
	FeeRead   = "fee:read"
	FeeUpdate = "fee:update"

	MessageSend = "message:send"
	MessageRead = "message:read"

	ReportRead   = "report:read"
	ReportExport = "report:export"

	UserCreate  = "user:create"
	UserRead    = "user:read"
	UserUpdate  = "user:update"
	UserDelete  = "user:delete"
	UserApprove = "user:approve"

	RoleRead   = "role:read"
	RoleManage = "role:manage"

	AuditRead    = "audit:read"
	AuditExport  = "audit:export"
	AuditCleanup = "audit:cleanup"

	SettingsRead   = "settings:read"
	SettingsUpdate = "settings:update"

	BackupCreate  = "backup:create"
	BackupRestore = "backup:restore"
)

const (
	CategoryStudents   = "students"
	CategoryTeachers   = "teachers"
	CategoryClasses    = "classes"
	CategorySubjects   = "subjects"
	CategoryGrades     = "grades"
	CategoryAttendance = "attendance"
	CategoryLibrary    = "library"
	CategoryPayroll    = "payroll"
	CategoryFees       = "fees"
	CategoryMessages   = "messages"
	CategoryReports    = "reports"
	CategoryUsers      = "users"
	CategoryRoles      = "roles"
	CategoryAudit      = "audit"
	CategorySettings   = "settings"
	CategoryBackup     = "backup"
)

type category struct {
	name        string
	permissions []string
}

// catalog order is the order categories and permissions are presented in.
var catalog = []category{
	{CategoryStudents, []string{StudentCreate, StudentRead, StudentUpdate, StudentDelete}},
	{CategoryTeachers, []string{TeacherCreate, TeacherRead, TeacherUpdate, TeacherDelete}},
	{CategoryClasses, []string{ClassCreate, ClassRead, ClassUpdate, ClassDelete}},
	{CategorySubjects, []string{SubjectCreate, SubjectRead, SubjectUpdate, SubjectDelete}},
	{CategoryGrades, []string{GradeCreate, GradeRead, GradeUpdate, GradeDelete}},
	{CategoryAttendance, []string{AttendanceCreate, AttendanceRead, AttendanceUpdate}},
	{CategoryLibrary, []string{LibraryCreate, LibraryRead, LibraryUpdate, LibraryDelete, LibraryIssue}},
	{CategoryPayroll, []string{PayrollCreate, PayrollRead, PayrollUpdate, PayrollApprove}},
	{CategoryFees, []string{FeeCreate, FeeRead, FeeUpdate}},
	{CategoryMessages, []string{MessageSend, MessageRead}},
	{CategoryReports, []string{ReportRead, ReportExport}},
	{CategoryUsers, []string{UserCreate, UserRead, UserUpdate, UserDelete, UserApprove}},
	{CategoryRoles, []string{RoleRead, RoleManage}},
	{CategoryAudit, []string{AuditRead, AuditExport, AuditCleanup}},
	{CategorySettings, []string{SettingsRead, SettingsUpdate}},
	{CategoryBackup, []string{BackupCreate, BackupRestore}},
}

var (
	all   []string
	index map[string]string
)

func init() {
	index = make(map[string]string)
	for _, c := range catalog {
		for _, p := range c.permissions {
			if _, dup := index[p]; dup {
				panic("permission: duplicate identifier " + p)
			}
			index[p] = c.name
			all = append(all, p)
		}
	}
}

// All returns every identifier in catalog order. The slice is a copy.
func All() []string {
	return append([]string(nil), all...)
}

// Categories maps category name to its identifiers. The map and slices are copies.
func Categories() map[string][]string {
	out := make(map[string][]string, len(catalog))
	for _, c := range catalog {
		out[c.name] = append([]string(nil), c.permissions...)
	}
	return out
}

func CategoryNames() []string {
	names := make([]string, len(catalog))
	for i, c := range catalog {
		names[i] = c.name
	}
	return names
}

func CategoryOf(p string) (string, bool) {
	c, ok := index[p]
	return c, ok
}

func IsValid(p string) bool {
	_, ok := index[p]
	return ok
}

// Invalid returns the identifiers of ps missing from the catalog, deduplicated, in first-seen order.
func Invalid(ps []string) []string {
	var bad []string
	seen := make(map[string]struct{})
	for _, p := range ps {
		if IsValid(p) {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		bad = append(bad, p)
	}
	return bad
}

// Normalize drops duplicates while keeping the caller's order.
func Normalize(ps []string) []string {
	out := make([]string, 0, len(ps))
	seen := make(map[string]struct{}, len(ps))
	for _, p := range ps {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
