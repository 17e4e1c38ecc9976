package db

import (
	"context"
	"database/sql"
)

const countQueryLogs = `-- name: CountQueryLogs :one
select
    count(*) as total,
    coalesce(sum(success = 1), 0) as successful,
    coalesce(sum(success = 0), 0) as failed
from query_log
`

type CountQueryLogsRow struct {
	Total      int64
	Successful int64
	Failed     int64
}

func (q *Queries) CountQueryLogs(ctx context.Context) (CountQueryLogsRow, error) {
	row := q.db.QueryRowContext(ctx, countQueryLogs)
	var i CountQueryLogsRow
	err := row.Scan(&i.Total, &i.Successful, &i.Failed)
	return i, err
}

const createQueryLog = `-- name: CreateQueryLog :exec
insert into query_log(
    time, state, district, court_complex, case_type, case_number,
    case_year, captcha_value, request, response, success, error
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateQueryLogParams struct {
	Time         int64
	State        sql.NullString
	District     sql.NullString
	CourtComplex sql.NullString
	CaseType     sql.NullString
	CaseNumber   sql.NullString
	CaseYear     sql.NullString
	CaptchaValue sql.NullString
	Request      string
	Response     sql.NullString
	Success      int64
	Error        sql.NullString
}

func (q *Queries) CreateQueryLog(ctx context.Context, arg CreateQueryLogParams) error {
	_, err := q.db.ExecContext(ctx, createQueryLog,
		arg.Time,
		arg.State,
		arg.District,
		arg.CourtComplex,
		arg.CaseType,
		arg.CaseNumber,
		arg.CaseYear,
		arg.CaptchaValue,
		arg.Request,
		arg.Response,
		arg.Success,
		arg.Error,
	)
	return err
}

const getRecentQueryLogs = `-- name: GetRecentQueryLogs :many
select id, time, state, district, court_complex, case_type, case_number, case_year, captcha_value, request, response, success, error from query_log
order by time desc, id desc
limit ?
`

func (q *Queries) GetRecentQueryLogs(ctx context.Context, limit int64) ([]QueryLog, error) {
	rows, err := q.db.QueryContext(ctx, getRecentQueryLogs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []QueryLog
	for rows.Next() {
		var i QueryLog
		if err := rows.Scan(
			&i.ID,
			&i.Time,
			&i.State,
			&i.District,
			&i.CourtComplex,
			&i.CaseType,
			&i.CaseNumber,
			&i.CaseYear,
			&i.CaptchaValue,
			&i.Request,
			&i.Response,
			&i.Success,
			&i.Error,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTopStates = `-- name: GetTopStates :many
select state, count(*) as count from query_log
where state is not null and state != ''
group by state
order by count desc, state asc
limit ?
`

type GetTopStatesRow struct {
	State sql.NullString
	Count int64
}

func (q *Queries) GetTopStates(ctx context.Context, limit int64) ([]GetTopStatesRow, error) {
	rows, err := q.db.QueryContext(ctx, getTopStates, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetTopStatesRow
	for rows.Next() {
		var i GetTopStatesRow
		if err := rows.Scan(&i.State, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
