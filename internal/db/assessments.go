package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/bqs/internal/models"
)

const versionColumns = `
	id, opportunity_id, version_no, status, overall_score, confidence_level, recommendation,
	summary, attachment_name, sa_submitted, sp_submitted, created_by, created_at, submitted_at`

func scanVersion(sc interface{ Scan(...any) error }) (*models.AssessmentVersion, error) {
	var (
		v         models.AssessmentVersion
		status    string
		overall   sql.NullInt64
		submitted sql.NullTime
	)
	err := sc.Scan(&v.ID, &v.OpportunityID, &v.VersionNo, &status, &overall, &v.Confidence, &v.Recommendation,
		&v.Summary, &v.Attachment, &v.SASubmitted, &v.SPSubmitted, &v.CreatedBy, &v.CreatedAt, &submitted)
	if err != nil {
		return nil, err
	}
	v.Status = models.VersionStatus(status)
	if overall.Valid {
		n := int(overall.Int64)
		v.OverallScore = &n
	}
	v.SubmittedAt = timePtr(submitted)
	return &v, nil
}

// LatestVersion: версия с максимальным номером; nil, nil если версий нет.
func LatestVersion(ctx context.Context, q Querier, opportunityID string) (*models.AssessmentVersion, error) {
	return oneVersion(ctx, q, `SELECT `+versionColumns+` FROM assessment_versions
		WHERE opportunity_id = $1 ORDER BY version_no DESC LIMIT 1`, opportunityID)
}

// LockLatestVersion: то же под FOR UPDATE (внутри транзакции).
func LockLatestVersion(ctx context.Context, tx *sql.Tx, opportunityID string) (*models.AssessmentVersion, error) {
	return oneVersion(ctx, tx, `SELECT `+versionColumns+` FROM assessment_versions
		WHERE opportunity_id = $1 ORDER BY version_no DESC LIMIT 1 FOR UPDATE`, opportunityID)
}

func GetVersion(ctx context.Context, q Querier, opportunityID string, versionNo int) (*models.AssessmentVersion, error) {
	return oneVersion(ctx, q, `SELECT `+versionColumns+` FROM assessment_versions
		WHERE opportunity_id = $1 AND version_no = $2`, opportunityID, versionNo)
}

func oneVersion(ctx context.Context, q Querier, query string, args ...any) (*models.AssessmentVersion, error) {
	v, err := scanVersion(q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// ListVersions: все версии по убыванию номера; statuses пустой: без фильтра.
func ListVersions(ctx context.Context, q Querier, opportunityID string, statuses ...models.VersionStatus) ([]models.AssessmentVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM assessment_versions WHERE opportunity_id = $1`
	args := []any{opportunityID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, stringArray(statuses))
	}
	query += ` ORDER BY version_no DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.AssessmentVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// CreateVersion вставляет новую версию. Гонка за номер версии
// проявится как unique violation на (opportunity_id, version_no).
func CreateVersion(ctx context.Context, q Querier, v *models.AssessmentVersion) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO assessment_versions (id, opportunity_id, version_no, status, overall_score, confidence_level,
		                                 recommendation, summary, attachment_name, sa_submitted, sp_submitted,
		                                 created_by, created_at, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, v.ID, v.OpportunityID, v.VersionNo, string(v.Status), v.OverallScore, v.Confidence,
		v.Recommendation, v.Summary, v.Attachment, v.SASubmitted, v.SPSubmitted,
		v.CreatedBy, v.CreatedAt, v.SubmittedAt)
	return err
}

// UpdateVersion переписывает изменяемые поля версии.
func UpdateVersion(ctx context.Context, q Querier, v *models.AssessmentVersion) error {
	_, err := q.ExecContext(ctx, `
		UPDATE assessment_versions
		SET status = $2, overall_score = $3, confidence_level = $4, recommendation = $5,
		    summary = $6, attachment_name = $7, sa_submitted = $8, sp_submitted = $9, submitted_at = $10
		WHERE id = $1
	`, v.ID, string(v.Status), v.OverallScore, v.Confidence, v.Recommendation,
		v.Summary, v.Attachment, v.SASubmitted, v.SPSubmitted, v.SubmittedAt)
	return err
}

// SubmissionFlags: были ли отправки SA/SP хоть в одной версии.
func SubmissionFlags(ctx context.Context, q Querier, opportunityID string) (sa, sp bool, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT COALESCE(bool_or(sa_submitted), FALSE), COALESCE(bool_or(sp_submitted), FALSE)
		FROM assessment_versions WHERE opportunity_id = $1
	`, opportunityID).Scan(&sa, &sp)
	return sa, sp, err
}

func stringArray[T ~string](xs []T) any {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = string(x)
	}
	return pqArray(out)
}
