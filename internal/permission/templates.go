package permission

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleTeacher    = "teacher"
	RoleAccountant = "accountant"
	RoleLibrarian  = "librarian"
	RoleStudent    = "student"
	RoleParent     = "parent"
)

type RoleTemplate struct {
	Name        string
	Description string
	Permissions []string
}

func DefaultRoleTemplates() []RoleTemplate {
	return []RoleTemplate{
		{
			Name:        RoleSuperAdmin,
			Description: "Full access to every module, including backups and audit retention",
			Permissions: All(),
		},
		{
			Name:        RoleAdmin,
			Description: "School administration without backup restore",
			Permissions: except(All(), BackupRestore),
		},
		{
			Name:        RoleTeacher,
			Description: "Manage classes, grades and attendance for assigned students",
			Permissions: []string{
				StudentRead, ClassRead, SubjectRead,
				GradeCreate, GradeRead, GradeUpdate,
				AttendanceCreate, AttendanceRead, AttendanceUpdate,
				LibraryRead, MessageSend, MessageRead, ReportRead,
			},
		},
		{
			Name:        RoleAccountant,
			Description: "Payroll, fees and financial reports",
			Permissions: []string{
				StudentRead, TeacherRead,
				PayrollCreate, PayrollRead, PayrollUpdate,
				FeeCreate, FeeRead, FeeUpdate,
				MessageRead, ReportRead, ReportExport,
			},
		},
		{
			Name:        RoleLibrarian,
			Description: "Library catalogue and lending",
			Permissions: []string{
				StudentRead, TeacherRead,
				LibraryCreate, LibraryRead, LibraryUpdate, LibraryDelete, LibraryIssue,
				MessageRead,
			},
		},
		{
			Name:        RoleStudent,
			Description: "Read own grades, attendance and messages",
			Permissions: []string{GradeRead, AttendanceRead, LibraryRead, MessageRead, FeeRead},
		},
		{
			Name:        RoleParent,
			Description: "Follow a child's progress and fees",
			Permissions: []string{GradeRead, AttendanceRead, FeeRead, MessageSend, MessageRead},
		},
	}
}

func except(ps []string, drop ...string) []string {
	out := make([]string, 0, len(ps))
outer:
	for _, p := range ps {
		for _, d := range drop {
			if p == d {
				continue outer
			}
		}
		out = append(out, p)
	}
	return out
}
