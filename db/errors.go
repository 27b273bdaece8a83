package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nikhilsahni7/SurveyMap/apperr"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// translateError maps driver and GORM errors to apperr kinds. Errors that are
// already *apperr.Error pass through unchanged.
func translateError(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && strings.Contains(pgErr.ConstraintName, "name") {
		return apperr.BadRequest("Survey name already exists").WithInfo(apperr.InfoDuplicateSurveyName)
	}
	return apperr.Internal(code, err)
}
