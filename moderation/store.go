package moderation

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/vrooli/jobs/db"
	"github.com/vrooli/jobs/errors"
	"github.com/vrooli/jobs/pulse/batch"
)

// Fetched is one report row as read from the store. Err is set when the row
// itself is malformed; such a report is skipped without failing the page.
type Fetched struct {
	Report
	Err error
}

// RawResponse is a stored response before its action is validated
type RawResponse struct {
	ID          string
	ReportID    string
	ResponderID string
	Action      string
	Reputation  int
}

// Store reads open reports and applies decisions
type Store struct {
	db *sql.DB
}

// NewStore creates a report store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const reportTables = `reports r
	LEFT JOIN chat_messages cm ON cm.id = r.chat_message_id
	LEFT JOIN comments c ON c.id = r.comment_id
	LEFT JOIN issues i ON i.id = r.issue_id
	LEFT JOIN resource_versions rv ON rv.id = r.resource_version_id
	LEFT JOIN resources res ON res.id = rv.root_id
	LEFT JOIN tags tg ON tg.id = r.tag_id`

const reportColumns = `r.id, r.status, r.created_at,
	r.chat_message_id, cm.user_id,
	r.comment_id, c.owned_by_user_id, c.owned_by_team_id,
	r.issue_id, i.created_by_id,
	r.resource_version_id, rv.root_id, res.owned_by_user_id, res.owned_by_team_id,
	r.tag_id, tg.created_by_id,
	r.team_id, r.user_id`

// OpenReports is the scan over reports still open when the run started.
// Reports closed during the run keep matching through updated_at, so the
// paged set does not shrink under the cursor and no open report is skipped.
func OpenReports(runStart time.Time) batch.Query {
	return batch.Query{
		Table:   reportTables,
		Select:  reportColumns,
		Where:   "r.status = ? OR r.updated_at >= ?",
		Args:    []any{string(StatusOpen), db.FormatTime(runStart)},
		OrderBy: "r.id",
	}
}

// Source pages through report rows
func (s *Store) Source() batch.Source[Fetched] {
	return batch.NewSQLSource(s.db, scanReport)
}

func scanReport(row batch.Row) (Fetched, error) {
	var (
		id, status, createdAt string
		cols                  [15]sql.NullString
	)
	dest := []any{&id, &status, &createdAt}
	for i := range cols {
		dest = append(dest, &cols[i])
	}
	if err := row.Scan(dest...); err != nil {
		return Fetched{}, err
	}

	rel := relations{
		chatMessageID:       cols[0].String,
		chatMessageUserID:   cols[1].String,
		commentID:           cols[2].String,
		commentOwnerUserID:  cols[3].String,
		commentOwnerTeamID:  cols[4].String,
		issueID:             cols[5].String,
		issueCreatorID:      cols[6].String,
		resourceVersionID:   cols[7].String,
		resourceRootID:      cols[8].String,
		resourceOwnerUserID: cols[9].String,
		resourceOwnerTeamID: cols[10].String,
		tagID:               cols[11].String,
		tagCreatorID:        cols[12].String,
		teamID:              cols[13].String,
		userID:              cols[14].String,
	}

	f := Fetched{Report: Report{ID: id, Status: Status(status), Object: rel.object()}}
	created, err := db.ParseTime(createdAt)
	if err != nil {
		f.Err = errors.Wrapf(errors.ErrInvalidRequest, "report %s: %v", id, err)
		return f, nil
	}
	f.CreatedAt = created
	return f, nil
}

// Responses loads the responses of several reports in one query, keyed by report ID
func (s *Store) Responses(ctx context.Context, reportIDs []string) (map[string][]RawResponse, error) {
	out := make(map[string][]RawResponse, len(reportIDs))
	if len(reportIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(reportIDs)), ",")
	query := `SELECT id, report_id, COALESCE(created_by_id, ''), action_suggested, reputation
		FROM report_responses
		WHERE report_id IN (` + placeholders + `)
		ORDER BY report_id, id`

	args := make([]any, len(reportIDs))
	for i, id := range reportIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query report responses")
	}
	defer rows.Close()

	for rows.Next() {
		var r RawResponse
		if err := rows.Scan(&r.ID, &r.ReportID, &r.ResponderID, &r.Action, &r.Reputation); err != nil {
			return nil, errors.Wrap(err, "failed to scan report response")
		}
		out[r.ReportID] = append(out[r.ReportID], r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate report responses")
	}
	return out, nil
}

// Resolve closes an open report and applies effect in one transaction.
// Returns ErrNotFound when the report is no longer open.
func (s *Store) Resolve(ctx context.Context, reportID string, status Status, effect Effect, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE reports SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(status), db.FormatTime(now), reportID, string(StatusOpen))
	if err != nil {
		return errors.Wrapf(err, "failed to update report %s", reportID)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check rows affected")
	}
	if n == 0 {
		return errors.NewNotFoundError("open report %s", reportID)
	}

	if err := applyEffect(ctx, tx, effect); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit report resolution")
	}
	return nil
}

func applyEffect(ctx context.Context, tx *sql.Tx, effect Effect) error {
	if effect.Kind == EffectNone {
		return nil
	}

	obj := effect.Object
	table := obj.Type().table()
	var query string
	switch effect.Kind {
	case EffectSoftDelete:
		query = `UPDATE ` + table + ` SET is_deleted = 1 WHERE id = ?`
	case EffectHardDelete:
		query = `DELETE FROM ` + table + ` WHERE id = ?`
	case EffectHide:
		query = `UPDATE ` + table + ` SET is_private = 1 WHERE id = ?`
	default:
		return errors.Newf("unknown effect %d", effect.Kind)
	}

	if _, err := tx.ExecContext(ctx, query, obj.ObjectID()); err != nil {
		return errors.Wrapf(err, "failed to %s %s %s", effect.Kind, obj.Type(), obj.ObjectID())
	}
	return nil
}
