package report

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/assessment"
	"github.com/trezcool/matokeo/core/result"
	"github.com/trezcool/matokeo/core/school"
	"github.com/trezcool/matokeo/core/user"
)

var (
	errNoEmail = errors.New("your account has no email address")

	nowFunc = time.Now // mockable
)

type Service struct {
	assessments *assessment.Service
	classes     *school.Service
	users       user.Repository
	mailSvc     core.EmailService
	conf        *core.Config
}

func NewService(
	assessments *assessment.Service,
	classes *school.Service,
	users user.Repository,
	mailSvc core.EmailService,
	conf *core.Config,
) *Service {
	return &Service{
		assessments: assessments,
		classes:     classes,
		users:       users,
		mailSvc:     mailSvc,
		conf:        conf,
	}
}

func (svc *Service) passMark(a assessment.Assessment) float64 {
	if a.PassMark != nil {
		return *a.PassMark
	}
	return svc.conf.Report.PassMark
}

// AssessmentReport ranks the completed attempts at an assessment and summarizes them.
// Only the class teacher and admins may see it.
func (svc *Service) AssessmentReport(ctx context.Context, viewer user.User, assessmentID string) (AssessmentReport, error) {
	a, class, err := svc.assessments.Authorize(ctx, viewer, assessmentID)
	if err != nil {
		return AssessmentReport{}, err
	}
	return svc.buildAssessmentReport(ctx, a, class)
}

// AssessmentReportOf builds the report of an assessment without access checks.
func (svc *Service) AssessmentReportOf(ctx context.Context, assessmentID string) (AssessmentReport, error) {
	a, err := svc.assessments.Find(ctx, assessmentID)
	if err != nil {
		return AssessmentReport{}, err
	}
	class, err := svc.classes.FindClass(ctx, a.ClassID)
	if err != nil {
		return AssessmentReport{}, errors.Wrap(err, "finding class")
	}
	return svc.buildAssessmentReport(ctx, a, class)
}

func (svc *Service) buildAssessmentReport(ctx context.Context, a assessment.Assessment, class school.Class) (AssessmentReport, error) {
	scores, err := svc.assessments.CompletedScores(ctx, a.ID)
	if err != nil {
		return AssessmentReport{}, errors.Wrap(err, "getting completed scores")
	}
	rosterSize, err := svc.classes.RosterSize(ctx, class.ID)
	if err != nil {
		return AssessmentReport{}, err
	}
	subj, err := svc.classes.GetSubject(ctx, class.SubjectID)
	if err != nil {
		return AssessmentReport{}, errors.Wrap(err, "finding subject")
	}

	return AssessmentReport{
		SchoolName:   svc.conf.SchoolName,
		Assessment:   a,
		Class:        class,
		Subject:      subj,
		GeneratedAt:  nowFunc().UTC(),
		Results:      newResultRows(result.Rank(scores)),
		Summary:      result.SummarizeWithPassMark(scores, rosterSize, svc.passMark(a)),
		Distribution: result.Distribution(scores, svc.conf.Report.BucketWidth),
	}, nil
}

// StudentReport lists the outcome of every assessment of the classes the student is enrolled in.
// The student, admins and their teachers may see it; teachers only see the entries of their own classes.
func (svc *Service) StudentReport(ctx context.Context, viewer user.User, studentID string) (StudentReport, error) {
	student, err := svc.users.GetUser(ctx, user.GetFilter{ID: studentID})
	if err != nil {
		return StudentReport{}, err
	}
	if !student.IsStudent() {
		return StudentReport{}, user.ErrNotFound
	}

	classes, err := svc.classes.ClassesOf(ctx, student.ID)
	if err != nil {
		return StudentReport{}, errors.Wrap(err, "querying classes")
	}
	if !(viewer.ID == student.ID || viewer.IsAdmin()) {
		taught := make([]school.Class, 0, len(classes))
		for _, class := range classes {
			if school.CanView(viewer, class) {
				taught = append(taught, class)
			}
		}
		if len(taught) == 0 {
			return StudentReport{}, core.ErrForbidden
		}
		classes = taught
	}

	rep := StudentReport{
		SchoolName:  svc.conf.SchoolName,
		StudentID:   student.ID,
		StudentName: student.DisplayName(),
		GeneratedAt: nowFunc().UTC(),
		Entries:     []StudentReportEntry{},
	}
	if len(classes) == 0 {
		return rep, nil
	}

	classByID := make(map[string]school.Class, len(classes))
	ids := make([]string, 0, len(classes))
	for _, class := range classes {
		classByID[class.ID] = class
		ids = append(ids, class.ID)
	}
	assessments, err := svc.assessments.ListForClasses(ctx, ids...)
	if err != nil {
		return StudentReport{}, errors.Wrap(err, "querying assessments")
	}

	for _, a := range assessments {
		scores, err := svc.assessments.CompletedScores(ctx, a.ID)
		if err != nil {
			return StudentReport{}, errors.Wrap(err, "getting completed scores")
		}
		sum := result.Summarize(scores, 0)
		entry := StudentReportEntry{
			AssessmentID:     a.ID,
			AssessmentTitle:  a.Title,
			ClassID:          a.ClassID,
			ClassName:        classByID[a.ClassID].Name,
			ClassAverage:     sum.AverageScore,
			ParticipantCount: sum.ParticipantCount,
			CreatedAt:        a.CreatedAt,
			DueAt:            a.DueAt,
		}
		if r, ok := result.PositionOf(result.Rank(scores), student.ID); ok {
			score := result.Round(r.Score)
			entry.Completed = true
			entry.Position = r.Position
			entry.Ordinal = Ordinal(r.Position)
			entry.Score = &score
		}
		rep.Entries = append(rep.Entries, entry)
	}
	sort.SliceStable(rep.Entries, func(i, j int) bool {
		return rep.Entries[i].CreatedAt.Before(rep.Entries[j].CreatedAt)
	})
	return rep, nil
}

// EmailAssessmentReport mails the PDF report of an assessment to viewer.
func (svc *Service) EmailAssessmentReport(ctx context.Context, viewer user.User, assessmentID string) error {
	if viewer.Email == "" {
		return core.NewValidationError(errNoEmail)
	}
	rep, err := svc.AssessmentReport(ctx, viewer, assessmentID)
	if err != nil {
		return err
	}

	var pdf bytes.Buffer
	if err = RenderPDF(&pdf, rep); err != nil {
		return errors.Wrap(err, "rendering PDF")
	}

	average := "n/a"
	if rep.Summary.AverageScore != nil {
		average = fmt.Sprintf("%.1f", *rep.Summary.AverageScore)
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: viewer.Name, Address: viewer.Email}},
		Subject:      "Results: " + rep.Assessment.Title,
		TemplateName: "assessment_report",
		TemplateData: map[string]interface{}{
			"Name":         viewer.DisplayName(),
			"Title":        rep.Assessment.Title,
			"ClassName":    rep.Class.Name,
			"Participants": fmt.Sprintf("%d / %d", rep.Summary.ParticipantCount, rep.Summary.RosterSize),
			"Average":      average,
		},
	}
	if err = msg.Attach(&pdf, rep.Filename()+".pdf", "application/pdf"); err != nil {
		return errors.Wrap(err, "attaching PDF")
	}
	if err = msg.Render(svc.conf); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}
