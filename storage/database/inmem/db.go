// Package inmemdb implements every repository of the app in memory. It backs the tests and
// the `memory` database engine.
package inmemdb

import (
	"sync"
	"time"

	"github.com/trezcool/matokeo/core/assessment"
	"github.com/trezcool/matokeo/core/school"
	"github.com/trezcool/matokeo/core/user"
)

type (
	DB struct {
		user       *userTable
		school     *schoolTables
		assessment *assessmentTables
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	schoolTables struct {
		sync.RWMutex
		subjects    map[string]school.Subject
		classes     map[string]school.Class
		enrollments map[string]map[string]time.Time // {classID: {studentID: enrolledAt}}
	}

	assessmentTables struct {
		sync.RWMutex
		assessments map[string]assessment.Assessment
		attempts    map[attemptKey]assessment.Attempt
		banks       map[string]assessment.QuestionBank
		questions   map[string][]assessment.Question // {bankID: questions in insertion order}
	}

	attemptKey struct {
		assessmentID string
		studentID    string
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
		school: &schoolTables{
			subjects:    make(map[string]school.Subject),
			classes:     make(map[string]school.Class),
			enrollments: make(map[string]map[string]time.Time),
		},
		assessment: &assessmentTables{
			assessments: make(map[string]assessment.Assessment),
			attempts:    make(map[attemptKey]assessment.Attempt),
			banks:       make(map[string]assessment.QuestionBank),
			questions:   make(map[string][]assessment.Question),
		},
	}
}
