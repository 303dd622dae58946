package gormrepos

import (
	"time"

	"github.com/trezcool/asm/core/attendance"
	"github.com/trezcool/asm/core/course"
	"github.com/trezcool/asm/core/enrollment"
	"github.com/trezcool/asm/core/user"
)

type userModel struct {
	ID           int        `gorm:"primaryKey;column:id"`
	Name         string     `gorm:"column:name;not null"`
	Email        string     `gorm:"column:email;not null"`
	PasswordHash []byte     `gorm:"column:password_hash;not null"`
	Role         int        `gorm:"column:role;not null"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime:false"`
	LastLogin    *time.Time `gorm:"column:last_login"`
}

func (userModel) TableName() string { return "users" }

func newUserModel(usr user.User) userModel {
	m := userModel{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		PasswordHash: usr.PasswordHash,
		Role:         int(usr.Role),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
	}
	if !usr.LastLogin.IsZero() {
		ll := usr.LastLogin.UTC()
		m.LastLogin = &ll
	}
	return m
}

func (m userModel) user() user.User {
	usr := user.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         user.Role(m.Role),
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
	if m.LastLogin != nil {
		usr.LastLogin = m.LastLogin.UTC()
	}
	return usr
}

type courseModel struct {
	ID          int       `gorm:"primaryKey;column:id"`
	Code        string    `gorm:"column:code;not null"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description;not null"`
	TeacherID   int       `gorm:"column:teacher_id;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (courseModel) TableName() string { return "courses" }

func newCourseModel(crs course.Course) courseModel {
	return courseModel{
		ID:          crs.ID,
		Code:        crs.Code,
		Name:        crs.Name,
		Description: crs.Description,
		TeacherID:   crs.TeacherID,
		CreatedAt:   crs.CreatedAt.UTC(),
		UpdatedAt:   crs.UpdatedAt.UTC(),
	}
}

func (m courseModel) course() course.Course {
	return course.Course{
		ID:          m.ID,
		Code:        m.Code,
		Name:        m.Name,
		Description: m.Description,
		TeacherID:   m.TeacherID,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

type enrollmentModel struct {
	ID         int       `gorm:"primaryKey;column:id"`
	StudentID  int       `gorm:"column:student_id;not null"`
	CourseID   int       `gorm:"column:course_id;not null"`
	EnrolledAt time.Time `gorm:"column:enrolled_at;not null"`
}

func (enrollmentModel) TableName() string { return "enrollments" }

func (m enrollmentModel) enrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:         m.ID,
		StudentID:  m.StudentID,
		CourseID:   m.CourseID,
		EnrolledAt: m.EnrolledAt.UTC(),
	}
}

type attendanceModel struct {
	ID                int       `gorm:"primaryKey;column:id"`
	EnrollmentID      int       `gorm:"column:enrollment_id;not null"`
	Date              time.Time `gorm:"column:date;type:date;not null"`
	Status            int       `gorm:"column:status;not null"`
	MarkedByTeacherID int       `gorm:"column:marked_by_teacher_id;not null"`
}

func (attendanceModel) TableName() string { return "attendances" }

func newAttendanceModel(att attendance.Attendance) attendanceModel {
	return attendanceModel{
		ID:                att.ID,
		EnrollmentID:      att.EnrollmentID,
		Date:              att.Date,
		Status:            int(att.Status),
		MarkedByTeacherID: att.MarkedByTeacherID,
	}
}
