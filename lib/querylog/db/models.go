package db

import (
	"database/sql"
)

type QueryLog struct {
	ID           int64
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
