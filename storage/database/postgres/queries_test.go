package pgrepos

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/assessment"
	"github.com/trezcool/matokeo/core/school"
	"github.com/trezcool/matokeo/core/user"
)

const (
	subjectID = "0b8f4f52-1c8e-4d6a-9d43-1f7e7f1c0a01"
	teacherID = "0b8f4f52-1c8e-4d6a-9d43-1f7e7f1c0a02"
	studentID = "0b8f4f52-1c8e-4d6a-9d43-1f7e7f1c0a03"
)

func TestClassesQuery(t *testing.T) {
	tests := []struct {
		name     string
		filter   school.ClassFilter
		wantOK   bool
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:     "no filter",
			wantOK:   true,
			wantSQL:  "SELECT c.* FROM class c ORDER BY c.name, c.id",
			wantArgs: nil,
		},
		{
			name:   "every filter",
			filter: school.ClassFilter{SubjectID: subjectID, TeacherID: teacherID, Semester: "2024-S1", StudentID: studentID},
			wantOK: true,
			wantSQL: "SELECT c.* FROM class c JOIN enrollment e ON e.class_id = c.id " +
				"WHERE c.subject_id = $1 AND c.teacher_id = $2 AND c.semester = $3 AND e.student_id = $4 " +
				"ORDER BY c.name, c.id",
			wantArgs: []interface{}{subjectID, teacherID, "2024-S1", studentID},
		},
		{name: "malformed teacher id", filter: school.ClassFilter{TeacherID: "lol"}},
		{name: "malformed student id", filter: school.ClassFilter{StudentID: "lol"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := classesQuery(tt.filter)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			query, args, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, query)
			assert.ElementsMatch(t, tt.wantArgs, args)
		})
	}
}

func TestEnrollQuery(t *testing.T) {
	at := time.Date(2024, 1, 8, 10, 0, 0, 0, time.FixedZone("EAT", 3*60*60))

	query, args, err := enrollQuery("c1", []string{"s1", "s2"}, at).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO enrollment (class_id,student_id,enrolled_at) VALUES ($1,$2,$3),($4,$5,$6) ON CONFLICT DO NOTHING",
		query)
	assert.Equal(t, []interface{}{"c1", "s1", at.UTC(), "c1", "s2", at.UTC()}, args)
}

func TestUsersQuery(t *testing.T) {
	active := true

	t.Run("default ordering", func(t *testing.T) {
		query, args, err := usersQuery(nil, nil).ToSql()
		require.NoError(t, err)
		assert.Equal(t, `SELECT * FROM "user" ORDER BY username ASC, id`, query)
		assert.Empty(t, args)
	})

	t.Run("filtered", func(t *testing.T) {
		filter := &user.QueryFilter{Search: "ja", Roles: []string{user.RoleTeacher}, IsActive: &active}
		ordering := []core.DBOrdering{{Field: "Created_At"}, {Field: "password_hash", Ascending: true}}

		query, args, err := usersQuery(filter, ordering).ToSql()
		require.NoError(t, err)
		assert.Equal(t,
			`SELECT * FROM "user" WHERE (name ILIKE $1 OR username ILIKE $2 OR email ILIKE $3) `+
				`AND (EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role LIKE $4)) `+
				`AND is_active = $5 ORDER BY created_at DESC, id`,
			query)
		assert.Equal(t, []interface{}{"%ja%", "%ja%", "%ja%", user.RoleTeacher + "%", true}, args)
	})
}

func TestAttemptsQuery(t *testing.T) {
	query, args, err := attemptsQuery("a1", []string{assessment.StatusCompleted}).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT * FROM attempt WHERE assessment_id = $1 AND status IN ($2) ORDER BY completed_at ASC NULLS LAST, student_id",
		query)
	assert.Equal(t, []interface{}{"a1", assessment.StatusCompleted}, args)

	query, _, err = attemptsQuery("a1", nil).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, query, "status")
}

func TestSaveAttemptSQL(t *testing.T) {
	row := attemptRow{ID: "at1", AssessmentID: "a1", StudentID: "s1", Status: assessment.StatusAbandoned}

	query, args, err := sqlx.Named(saveAttemptSQL, row)
	require.NoError(t, err)
	query = sqlx.Rebind(sqlx.DOLLAR, query)

	assert.Contains(t, query, "VALUES ($1, $2, $3, $4, $5, $6, $7)")
	assert.Contains(t, query, "ON CONFLICT (assessment_id, student_id) DO UPDATE SET")
	assert.Contains(t, query, "RETURNING id")
	require.Len(t, args, 7)
	assert.Equal(t, []interface{}{"at1", "a1", "s1", assessment.StatusAbandoned}, args[:4])
}
